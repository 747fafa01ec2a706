// Package department manages departments and the employees assigned to
// them, including delegated department administration.
package department

import (
	"context"
	"strings"
	"time"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/auditlog"
	"github.com/frahmantamala/training-identity/internal/core/common/validation"
	departmentCore "github.com/frahmantamala/training-identity/internal/core/department"
	employeeCore "github.com/frahmantamala/training-identity/internal/core/employee"
)

type DepartmentRepository interface {
	FindByID(ctx context.Context, id string) (*departmentCore.Department, error)
	ListByCompany(ctx context.Context, companyID string) ([]*departmentCore.Department, error)
	Create(ctx context.Context, d *departmentCore.Department) error
	Save(ctx context.Context, d *departmentCore.Department) error
	// SwapAdmin sets the admin column to "to" only if it currently holds
	// "from"; otherwise it returns ErrStale.
	SwapAdmin(ctx context.Context, id string, from, to *string) error
}

type EmployeeRepository interface {
	FindByID(ctx context.Context, id string) (*employeeCore.Employee, error)
	// SaveAssignment writes role, department and approval only.
	SaveAssignment(ctx context.Context, e *employeeCore.Employee) error
}

// Store hands out repositories bound to one connection or transaction.
type Store interface {
	Departments() DepartmentRepository
	Employees() EmployeeRepository
	Atomic(ctx context.Context, fn func(tx Store) error) error
}

type AuditTrail interface {
	auditlog.Logger
	ListByDepartment(ctx context.Context, departmentID string, page, limit int) (*auditlog.Page, error)
}

// Cache holds department listings. It is never consulted for
// authorization decisions.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type CreateDTO struct {
	Name string `json:"name"`
}

func (d *CreateDTO) Validate() *errors.AppError {
	d.Name = strings.TrimSpace(d.Name)
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(2).MaxLength(100)
	return v.Validate()
}

type EmployeeDTO struct {
	EmployeeID string `json:"employee_id"`
}

func (d *EmployeeDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("employee_id", d.EmployeeID).Required()
	return v.Validate()
}
