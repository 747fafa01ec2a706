package department

import (
	"time"

	employeeDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/employee"
)

type Department struct {
	ID                string  `gorm:"primaryKey;column:id"`
	Name              string  `gorm:"column:name;not null;uniqueIndex:idx_departments_company_name"`
	CompanyID         string  `gorm:"column:company_id;not null;uniqueIndex:idx_departments_company_name"`
	DepartmentAdminID *string `gorm:"column:department_admin_id;uniqueIndex"`
	IsActive          bool    `gorm:"column:is_active;not null;default:true"`

	DepartmentAdmin *employeeDatamodel.Employee  `gorm:"foreignKey:DepartmentAdminID"`
	Employees       []employeeDatamodel.Employee `gorm:"foreignKey:DepartmentID"`

	CreatedAt time.Time `gorm:"column:created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}
