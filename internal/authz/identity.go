// Package authz resolves the caller of a request and decides what it may do.
package authz

import (
	"context"

	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/core/company"
	"github.com/frahmantamala/training-identity/internal/core/department"
	"github.com/frahmantamala/training-identity/internal/core/employee"
)

type ctxKey string

const (
	identityKey   ctxKey = "identity"
	departmentKey ctxKey = "department"
)

// Identity is the authenticated caller. Exactly one of Company and Employee
// is set.
type Identity struct {
	Company  *company.Company
	Employee *employee.Employee
}

func (i *Identity) Account() account.Account {
	if i.Company != nil {
		return i.Company
	}
	return i.Employee
}

func (i *Identity) ID() string {
	return i.Account().AccountID()
}

func (i *Identity) Kind() account.Kind {
	return i.Account().AccountKind()
}

func (i *Identity) IsCompany() bool {
	return i.Company != nil
}

func (i *Identity) IsEmployee() bool {
	return i.Employee != nil
}

// CompanyID is the tenant the caller acts in.
func (i *Identity) CompanyID() string {
	if i.Company != nil {
		return i.Company.ID
	}
	return i.Employee.CompanyID
}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

func IdentityFromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(identityKey).(*Identity)
	return id, ok && id != nil
}

func WithDepartment(ctx context.Context, d *department.Department) context.Context {
	return context.WithValue(ctx, departmentKey, d)
}

// DepartmentFromContext returns the department loaded by CompanyDepartment
// or AllowedToActOnDepartment.
func DepartmentFromContext(ctx context.Context) (*department.Department, bool) {
	d, ok := ctx.Value(departmentKey).(*department.Department)
	return d, ok && d != nil
}
