package employee

import (
	"time"

	accountDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/account"
)

type Employee struct {
	ID           string  `gorm:"primaryKey;column:id"`
	FullName     string  `gorm:"column:full_name;not null"`
	Email        string  `gorm:"column:email;uniqueIndex;not null"`
	PhoneNumber  string  `gorm:"column:phone_number;uniqueIndex;not null"`
	Role         string  `gorm:"column:role;not null"`
	CompanyID    string  `gorm:"column:company_id;index;not null"`
	DepartmentID *string `gorm:"column:department_id;index"`
	IsApproved   bool    `gorm:"column:is_approved;not null;default:false"`

	accountDatamodel.Credentials `gorm:"embedded"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}
