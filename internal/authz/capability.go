package authz

import (
	"github.com/frahmantamala/training-identity/internal/core/company"
	"github.com/frahmantamala/training-identity/internal/core/department"
	"github.com/frahmantamala/training-identity/internal/core/employee"
)

func IsCompanyOwnerOf(c *company.Company, departmentID string) bool {
	return c != nil && c.OwnsDepartment(departmentID)
}

// IsDepartmentAdminOf requires the admin role, membership and the
// department's own admin reference to agree.
func IsDepartmentAdminOf(e *employee.Employee, d *department.Department) bool {
	if e == nil || d == nil {
		return false
	}
	return e.IsDepartmentAdmin() && e.InDepartment(d.ID) && d.AdminID() == e.ID && e.CompanyID == d.CompanyID
}

func BelongsToCompany(e *employee.Employee, companyID string) bool {
	return e != nil && companyID != "" && e.CompanyID == companyID
}

// CanActOnDepartment is true for the owning company and for the
// department's admin.
func CanActOnDepartment(id *Identity, d *department.Department) bool {
	if id == nil || d == nil {
		return false
	}
	if id.IsCompany() {
		return IsCompanyOwnerOf(id.Company, d.ID)
	}
	return IsDepartmentAdminOf(id.Employee, d)
}

// CanManageEmployee is true for the employee's company and for the admin of
// the employee's department.
func CanManageEmployee(id *Identity, target *employee.Employee, targetDept *department.Department) bool {
	if id == nil || target == nil {
		return false
	}
	if id.IsCompany() {
		return BelongsToCompany(target, id.Company.ID)
	}
	if !target.HasDepartment() || targetDept == nil || targetDept.ID != *target.DepartmentID {
		return false
	}
	return BelongsToCompany(target, id.Employee.CompanyID) && IsDepartmentAdminOf(id.Employee, targetDept)
}
