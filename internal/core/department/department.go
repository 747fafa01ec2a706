package department

import (
	"errors"
	"time"

	departmentDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/department"
	"github.com/frahmantamala/training-identity/internal/core/employee"
	"github.com/google/uuid"
)

var (
	ErrNotFound  = errors.New("department not found")
	ErrDuplicate = errors.New("department name already used by this company")
	// ErrStale means a conditional write found the row in another state.
	ErrStale = errors.New("department changed concurrently")
)

// AdminRef is the contact card of a department's admin.
type AdminRef struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
}

type Member struct {
	ID   string        `json:"id"`
	Name string        `json:"name"`
	Role employee.Role `json:"role"`
}

type Department struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CompanyID string    `json:"company_id"`
	Admin     *AdminRef `json:"department_admin"`
	Employees []Member  `json:"employees"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(companyID, name string) *Department {
	now := time.Now()
	return &Department{
		ID:        uuid.NewString(),
		Name:      name,
		CompanyID: companyID,
		Employees: []Member{},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (d *Department) IsAdministered() bool {
	return d.Admin != nil
}

func (d *Department) AdminID() string {
	if d.Admin == nil {
		return ""
	}
	return d.Admin.ID
}

// ToDataModel maps only the department's own columns; admin and members
// are owned by the employee rows.
func ToDataModel(d *Department) *departmentDatamodel.Department {
	var adminID *string
	if d.Admin != nil {
		id := d.Admin.ID
		adminID = &id
	}
	return &departmentDatamodel.Department{
		ID:                d.ID,
		Name:              d.Name,
		CompanyID:         d.CompanyID,
		DepartmentAdminID: adminID,
		IsActive:          d.IsActive,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

func FromDataModel(d *departmentDatamodel.Department) *Department {
	dept := &Department{
		ID:        d.ID,
		Name:      d.Name,
		CompanyID: d.CompanyID,
		Employees: make([]Member, 0, len(d.Employees)),
		IsActive:  d.IsActive,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
	if d.DepartmentAdmin != nil {
		dept.Admin = &AdminRef{
			ID:          d.DepartmentAdmin.ID,
			Name:        d.DepartmentAdmin.FullName,
			Email:       d.DepartmentAdmin.Email,
			PhoneNumber: d.DepartmentAdmin.PhoneNumber,
		}
	} else if d.DepartmentAdminID != nil {
		dept.Admin = &AdminRef{ID: *d.DepartmentAdminID}
	}
	for _, e := range d.Employees {
		dept.Employees = append(dept.Employees, Member{
			ID:   e.ID,
			Name: e.FullName,
			Role: employee.Role(e.Role),
		})
	}
	return dept
}
