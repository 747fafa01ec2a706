package department

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/auditlog"
	"github.com/frahmantamala/training-identity/internal/authz"
	"github.com/frahmantamala/training-identity/internal/core/account"
	departmentCore "github.com/frahmantamala/training-identity/internal/core/department"
	employeeCore "github.com/frahmantamala/training-identity/internal/core/employee"
	"github.com/frahmantamala/training-identity/internal/notification"
)

var (
	errDuplicateName          = errors.NewValidationFieldError("name", "A department with this name already exists", errors.ErrCodeValidationFailed)
	errAlreadyAdmin           = errors.NewConflictError("Employee is already a department admin", errors.ErrCodeAlreadyInState)
	errDepartmentAdministered = errors.NewConflictError("Department already has an admin", errors.ErrCodeDepartmentAdministered)
	errAlreadyAssigned        = errors.NewConflictError("Employee is already assigned to a department", errors.ErrCodeAlreadyAssigned)
	errNotDepartmentAdmin     = errors.NewConflictError("Employee is not the admin of this department", errors.ErrCodeNotDepartmentAdmin)
	errRemoveAdmin            = errors.NewConflictError("Revoke the department admin role before removing this employee", errors.ErrCodeDepartmentAdministered)
	errAlreadyApproved        = errors.NewConflictError("Employee is already approved", errors.ErrCodeAlreadyInState)
	errAlreadyDisapproved     = errors.NewConflictError("Employee is already disapproved", errors.ErrCodeAlreadyInState)
	errAlreadyActive          = errors.NewConflictError("Department is already active", errors.ErrCodeAlreadyInState)
	errAlreadyInactive        = errors.NewConflictError("Department is already inactive", errors.ErrCodeAlreadyInState)
)

type Dependencies struct {
	Store         Store
	Audit         AuditTrail
	Notifications notification.Sink
	Cache         Cache
	CacheTTL      time.Duration
	Logger        *slog.Logger
}

type Service struct {
	store         Store
	audit         AuditTrail
	notifications notification.Sink
	cache         Cache
	cacheTTL      time.Duration
	logger        *slog.Logger
}

func NewService(deps Dependencies) *Service {
	lg := deps.Logger
	if lg == nil {
		lg = slog.Default()
	}
	return &Service{
		store:         deps.Store,
		audit:         deps.Audit,
		notifications: deps.Notifications,
		cache:         deps.Cache,
		cacheTTL:      deps.CacheTTL,
		logger:        lg,
	}
}

func (s *Service) Create(ctx context.Context, actor *authz.Identity, dto CreateDTO) (*departmentCore.Department, error) {
	if !actor.IsCompany() {
		return nil, errors.ErrForbidden
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	d := departmentCore.New(actor.Company.ID, dto.Name)
	if err := s.store.Departments().Create(ctx, d); err != nil {
		if stdErrors.Is(err, departmentCore.ErrDuplicate) {
			return nil, errDuplicateName
		}
		return nil, errors.NewInternalError("Failed to create department", err)
	}
	s.invalidate(ctx, d.CompanyID)

	s.logger.Info("department created", "department_id", d.ID, "company_id", d.CompanyID)
	return d, s.record(ctx, actor, auditlog.ActionCreateDepartment, d.CompanyID, &d.ID, nil, map[string]interface{}{
		"name": d.Name,
	})
}

func (s *Service) Get(ctx context.Context, id string) (*departmentCore.Department, error) {
	d, err := s.store.Departments().FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, departmentCore.ErrNotFound) {
			return nil, errors.ErrDepartmentNotFound
		}
		return nil, errors.NewInternalError("Failed to load department", err)
	}
	return d, nil
}

// List serves the company's departments from the cache when possible.
func (s *Service) List(ctx context.Context, companyID string) ([]*departmentCore.Department, error) {
	key := cacheKey(companyID)
	if s.cache != nil {
		var cached []*departmentCore.Department
		found, err := s.cache.Get(ctx, key, &cached)
		if err != nil {
			s.logger.Warn("department cache read failed", "company_id", companyID, "error", err)
		} else if found {
			return cached, nil
		}
	}

	list, err := s.store.Departments().ListByCompany(ctx, companyID)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load departments", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, list, s.cacheTTL); err != nil {
			s.logger.Warn("department cache write failed", "company_id", companyID, "error", err)
		}
	}
	return list, nil
}

func (s *Service) AuditLogs(ctx context.Context, departmentID string, page, limit int) (*auditlog.Page, error) {
	p, err := s.audit.ListByDepartment(ctx, departmentID, page, limit)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load audit logs", err)
	}
	return p, nil
}

func (s *Service) AddEmployee(ctx context.Context, actor *authz.Identity, d *departmentCore.Department, employeeID string) (*employeeCore.Employee, error) {
	e, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !authz.BelongsToCompany(e, d.CompanyID) {
		return nil, errors.ErrForbidden
	}
	if e.HasDepartment() {
		return nil, errAlreadyAssigned
	}

	deptID := d.ID
	e.DepartmentID = &deptID
	if err := s.store.Employees().SaveAssignment(ctx, e); err != nil {
		return nil, errors.NewInternalError("Failed to assign employee", err)
	}
	s.invalidate(ctx, d.CompanyID)

	s.notify(ctx, notification.Input{
		RecipientID:    e.ID,
		RecipientModel: account.KindEmployee,
		Type:           notification.TypeCustom,
		Title:          "Department assignment",
		Message:        fmt.Sprintf("You have been added to the %s department.", d.Name),
	})
	return e, s.record(ctx, actor, auditlog.ActionAddEmployee, d.CompanyID, &d.ID, &e.ID, map[string]interface{}{
		"employee_name": e.FullName,
	})
}

func (s *Service) RemoveEmployee(ctx context.Context, actor *authz.Identity, d *departmentCore.Department, employeeID string) (*employeeCore.Employee, error) {
	e, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !e.InDepartment(d.ID) {
		return nil, errors.ErrEmployeeNotFound
	}
	if actor.ID() == e.ID {
		return nil, errors.ErrForbidden
	}
	if d.AdminID() == e.ID {
		return nil, errRemoveAdmin
	}

	e.DepartmentID = nil
	if err := s.store.Employees().SaveAssignment(ctx, e); err != nil {
		return nil, errors.NewInternalError("Failed to remove employee", err)
	}
	s.invalidate(ctx, d.CompanyID)

	return e, s.record(ctx, actor, auditlog.ActionRemoveEmployee, d.CompanyID, &d.ID, &e.ID, map[string]interface{}{
		"employee_name": e.FullName,
	})
}

// AssignAdmin writes the department's admin column and the employee's role
// in one transaction.
func (s *Service) AssignAdmin(ctx context.Context, actor *authz.Identity, d *departmentCore.Department, employeeID string) (*departmentCore.Department, error) {
	e, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if !authz.BelongsToCompany(e, d.CompanyID) || !e.InDepartment(d.ID) {
		return nil, errors.ErrForbidden
	}
	if e.IsDepartmentAdmin() {
		return nil, errAlreadyAdmin
	}
	if d.IsAdministered() {
		return nil, errDepartmentAdministered
	}

	err = s.store.Atomic(ctx, func(tx Store) error {
		adminID := e.ID
		if err := tx.Departments().SwapAdmin(ctx, d.ID, nil, &adminID); err != nil {
			return err
		}
		e.Role = employeeCore.RoleDepartmentAdmin
		return tx.Employees().SaveAssignment(ctx, e)
	})
	if err != nil {
		switch {
		case stdErrors.Is(err, departmentCore.ErrStale):
			return nil, errDepartmentAdministered
		case stdErrors.Is(err, departmentCore.ErrDuplicate):
			return nil, errAlreadyAdmin
		}
		return nil, errors.NewInternalError("Failed to assign department admin", err)
	}

	d.Admin = &departmentCore.AdminRef{ID: e.ID, Name: e.FullName, Email: e.Email, PhoneNumber: e.PhoneNumber}
	for i := range d.Employees {
		if d.Employees[i].ID == e.ID {
			d.Employees[i].Role = employeeCore.RoleDepartmentAdmin
		}
	}
	s.invalidate(ctx, d.CompanyID)

	s.notify(ctx, notification.Input{
		RecipientID:    e.ID,
		RecipientModel: account.KindEmployee,
		Type:           notification.TypeCustom,
		Title:          "Department admin",
		Message:        fmt.Sprintf("You are now the admin of the %s department.", d.Name),
	})
	return d, s.record(ctx, actor, auditlog.ActionAssignDepartmentAdmin, d.CompanyID, &d.ID, &e.ID, map[string]interface{}{
		"employee_name": e.FullName,
	})
}

func (s *Service) RevokeAdmin(ctx context.Context, actor *authz.Identity, d *departmentCore.Department, employeeID string) (*departmentCore.Department, error) {
	e, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if d.AdminID() != e.ID {
		return nil, errNotDepartmentAdmin
	}

	err = s.store.Atomic(ctx, func(tx Store) error {
		current := e.ID
		if err := tx.Departments().SwapAdmin(ctx, d.ID, &current, nil); err != nil {
			return err
		}
		e.Role = employeeCore.RoleEmployee
		return tx.Employees().SaveAssignment(ctx, e)
	})
	if err != nil {
		if stdErrors.Is(err, departmentCore.ErrStale) {
			return nil, errNotDepartmentAdmin
		}
		return nil, errors.NewInternalError("Failed to revoke department admin", err)
	}

	d.Admin = nil
	for i := range d.Employees {
		if d.Employees[i].ID == e.ID {
			d.Employees[i].Role = employeeCore.RoleEmployee
		}
	}
	s.invalidate(ctx, d.CompanyID)

	return d, s.record(ctx, actor, auditlog.ActionRevokeDepartmentAdmin, d.CompanyID, &d.ID, &e.ID, map[string]interface{}{
		"employee_name": e.FullName,
	})
}

func (s *Service) Approve(ctx context.Context, actor *authz.Identity, employeeID string) (*employeeCore.Employee, error) {
	return s.setApproval(ctx, actor, employeeID, true)
}

func (s *Service) Disapprove(ctx context.Context, actor *authz.Identity, employeeID string) (*employeeCore.Employee, error) {
	return s.setApproval(ctx, actor, employeeID, false)
}

func (s *Service) setApproval(ctx context.Context, actor *authz.Identity, employeeID string, approved bool) (*employeeCore.Employee, error) {
	e, err := s.employee(ctx, employeeID)
	if err != nil {
		return nil, err
	}

	var dept *departmentCore.Department
	if e.HasDepartment() {
		dept, err = s.store.Departments().FindByID(ctx, *e.DepartmentID)
		if err != nil && !stdErrors.Is(err, departmentCore.ErrNotFound) {
			return nil, errors.NewInternalError("Failed to load department", err)
		}
	}
	if !authz.CanManageEmployee(actor, e, dept) {
		return nil, errors.ErrForbidden
	}

	if e.IsApproved == approved {
		if approved {
			return nil, errAlreadyApproved
		}
		return nil, errAlreadyDisapproved
	}

	e.IsApproved = approved
	if err := s.store.Employees().SaveAssignment(ctx, e); err != nil {
		return nil, errors.NewInternalError("Failed to update employee", err)
	}

	action, title, message := auditlog.ActionApproveEmployee, "Account approved", "Your account has been approved. You now have full access."
	if !approved {
		action, title, message = auditlog.ActionDisapproveEmployee, "Account disapproved", "Your account approval has been withdrawn."
	}
	s.notify(ctx, notification.Input{
		RecipientID:    e.ID,
		RecipientModel: account.KindEmployee,
		Type:           notification.TypeCustom,
		Title:          title,
		Message:        message,
	})
	return e, s.record(ctx, actor, action, e.CompanyID, e.DepartmentID, &e.ID, map[string]interface{}{
		"employee_name":  e.FullName,
		"employee_email": e.Email,
	})
}

func (s *Service) Activate(ctx context.Context, actor *authz.Identity, d *departmentCore.Department) (*departmentCore.Department, error) {
	return s.setActive(ctx, actor, d, true)
}

func (s *Service) Deactivate(ctx context.Context, actor *authz.Identity, d *departmentCore.Department) (*departmentCore.Department, error) {
	return s.setActive(ctx, actor, d, false)
}

func (s *Service) setActive(ctx context.Context, actor *authz.Identity, d *departmentCore.Department, active bool) (*departmentCore.Department, error) {
	if d.IsActive == active {
		if active {
			return nil, errAlreadyActive
		}
		return nil, errAlreadyInactive
	}

	d.IsActive = active
	if err := s.store.Departments().Save(ctx, d); err != nil {
		return nil, errors.NewInternalError("Failed to update department", err)
	}
	s.invalidate(ctx, d.CompanyID)

	action, verb := auditlog.ActionActivateDepartment, "activated"
	if !active {
		action, verb = auditlog.ActionDeactivateDepartment, "deactivated"
	}
	s.notify(ctx, notification.Input{
		RecipientID:    d.CompanyID,
		RecipientModel: account.KindCompany,
		Type:           notification.TypeCustom,
		Title:          "Department " + verb,
		Message:        fmt.Sprintf("The %s department was %s.", d.Name, verb),
	})
	return d, s.record(ctx, actor, action, d.CompanyID, &d.ID, nil, nil)
}

func (s *Service) employee(ctx context.Context, id string) (*employeeCore.Employee, error) {
	e, err := s.store.Employees().FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, account.ErrNotFound) {
			return nil, errors.ErrEmployeeNotFound
		}
		return nil, errors.NewInternalError("Failed to load employee", err)
	}
	return e, nil
}

// record writes the audit entry for a committed change. Its failure is
// reported to the caller but does not undo the change.
func (s *Service) record(ctx context.Context, actor *authz.Identity, action auditlog.Action, companyID string, departmentID, employeeID *string, details map[string]interface{}) error {
	md := errors.RequestMetadataFromContext(ctx)
	entry := auditlog.Entry{
		Action:       action,
		PerformedBy:  actorOf(actor),
		CompanyID:    companyID,
		DepartmentID: departmentID,
		EmployeeID:   employeeID,
		Details:      details,
		IP:           md.IP,
		UserAgent:    md.UserAgent,
	}
	if err := s.audit.Log(ctx, entry); err != nil {
		s.logger.Error("failed to write audit log", "action", action, "company_id", companyID, "error", err)
		return errors.ErrAuditLogFailed.WithCause(err)
	}
	return nil
}

func (s *Service) notify(ctx context.Context, in notification.Input) {
	if s.notifications == nil {
		return
	}
	if _, err := s.notifications.Send(ctx, in); err != nil {
		s.logger.Warn("failed to send notification", "recipient_id", in.RecipientID, "title", in.Title, "error", err)
	}
}

func (s *Service) invalidate(ctx context.Context, companyID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(companyID)); err != nil {
		s.logger.Warn("department cache invalidation failed", "company_id", companyID, "error", err)
	}
}

func cacheKey(companyID string) string {
	return "departments:" + companyID
}

func actorOf(id *authz.Identity) auditlog.Actor {
	if id.IsCompany() {
		return auditlog.Actor{
			ID:    id.Company.ID,
			Model: string(account.KindCompany),
			Role:  "company",
			Name:  id.Company.Name,
			Email: id.Company.PrimaryEmail,
		}
	}
	return auditlog.Actor{
		ID:    id.Employee.ID,
		Model: string(account.KindEmployee),
		Role:  string(id.Employee.Role),
		Name:  id.Employee.FullName,
		Email: id.Employee.Email,
	}
}
