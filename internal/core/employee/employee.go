package employee

import (
	"time"

	"github.com/frahmantamala/training-identity/internal/core/account"
	employeeDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/employee"
	"github.com/google/uuid"
)

type Role string

const (
	RoleEmployee        Role = "employee"
	RoleDepartmentAdmin Role = "departmentAdmin"
)

type Employee struct {
	ID           string  `json:"id"`
	FullName     string  `json:"full_name"`
	Email        string  `json:"email"`
	PhoneNumber  string  `json:"phone_number"`
	Role         Role    `json:"role"`
	CompanyID    string  `json:"company_id"`
	DepartmentID *string `json:"department_id"`
	IsApproved   bool    `json:"is_approved"`

	account.Credentials

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New returns an unverified, unapproved employee with the plain role.
func New(fullName, email, phone, companyID string, departmentID *string) *Employee {
	now := time.Now()
	return &Employee{
		ID:           uuid.NewString(),
		FullName:     fullName,
		Email:        email,
		PhoneNumber:  phone,
		Role:         RoleEmployee,
		CompanyID:    companyID,
		DepartmentID: departmentID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (e *Employee) AccountID() string { return e.ID }
func (e *Employee) AccountKind() account.Kind { return account.KindEmployee }
func (e *Employee) Auth() *account.Credentials { return &e.Credentials }
func (e *Employee) ContactEmail() string { return e.Email }
func (e *Employee) DisplayName() string { return e.FullName }
func (e *Employee) Phone() string { return e.PhoneNumber }
func (e *Employee) IsDepartmentAdmin() bool { return e.Role == RoleDepartmentAdmin }
func (e *Employee) HasDepartment() bool { return e.DepartmentID != nil && *e.DepartmentID != "" }
func (e *Employee) InDepartment(deptID string) bool { return e.HasDepartment() && *e.DepartmentID == deptID }

func ToDataModel(e *Employee) *employeeDatamodel.Employee {
	return &employeeDatamodel.Employee{
		ID:           e.ID,
		FullName:     e.FullName,
		Email:        e.Email,
		PhoneNumber:  e.PhoneNumber,
		Role:         string(e.Role),
		CompanyID:    e.CompanyID,
		DepartmentID: e.DepartmentID,
		IsApproved:   e.IsApproved,
		Credentials:  account.ToDataModel(e.Credentials),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func FromDataModel(e *employeeDatamodel.Employee) *Employee {
	return &Employee{
		ID:           e.ID,
		FullName:     e.FullName,
		Email:        e.Email,
		PhoneNumber:  e.PhoneNumber,
		Role:         Role(e.Role),
		CompanyID:    e.CompanyID,
		DepartmentID: e.DepartmentID,
		IsApproved:   e.IsApproved,
		Credentials:  account.FromDataModel(e.Credentials),
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}
