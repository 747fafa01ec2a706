package company

import (
	"time"

	accountDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/account"
	departmentDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/department"
)

type Company struct {
	ID             string  `gorm:"primaryKey;column:id"`
	Name           string  `gorm:"column:name;not null"`
	PrimaryEmail   string  `gorm:"column:primary_email;uniqueIndex;not null"`
	SecondaryEmail *string `gorm:"column:secondary_email;uniqueIndex"`
	PhoneNumber    string  `gorm:"column:phone_number;uniqueIndex;not null"`

	accountDatamodel.Credentials `gorm:"embedded"`

	Departments []departmentDatamodel.Department `gorm:"foreignKey:CompanyID"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}
