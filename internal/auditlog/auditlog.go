// Package auditlog records who changed a department and from where.
package auditlog

import (
	"context"
	"time"
)

type Action string

const (
	ActionCreateDepartment      Action = "CREATE_DEPARTMENT"
	ActionAssignDepartmentAdmin Action = "ASSIGN_DEPARTMENT_ADMIN"
	ActionRevokeDepartmentAdmin Action = "REVOKE_DEPARTMENT_ADMIN"
	ActionAddEmployee           Action = "ADD_EMPLOYEE"
	ActionRemoveEmployee        Action = "REMOVE_EMPLOYEE"
	ActionApproveEmployee       Action = "APPROVE_EMPLOYEE"
	ActionDisapproveEmployee    Action = "DISAPPROVE_EMPLOYEE"
	ActionActivateDepartment    Action = "ACTIVATE_DEPARTMENT"
	ActionDeactivateDepartment  Action = "DEACTIVATE_DEPARTMENT"
)

// Actor identifies who performed an audited action.
type Actor struct {
	ID    string `json:"id" db:"performed_by_id"`
	Model string `json:"model" db:"performed_by_model"`
	Role  string `json:"role" db:"performed_by_role"`
	Name  string `json:"name" db:"performed_by_name"`
	Email string `json:"email" db:"performed_by_email"`
}

type Entry struct {
	ID           string                 `json:"id"`
	Action       Action                 `json:"action"`
	PerformedBy  Actor                  `json:"performed_by"`
	CompanyID    string                 `json:"company_id"`
	DepartmentID *string                `json:"department_id,omitempty"`
	EmployeeID   *string                `json:"employee_id,omitempty"`
	Details      map[string]interface{} `json:"details,omitempty"`
	IP           string                 `json:"ip,omitempty"`
	UserAgent    string                 `json:"user_agent,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Logger is what mutating services depend on.
type Logger interface {
	Log(ctx context.Context, entry Entry) error
}

type Page struct {
	Entries    []Entry `json:"entries"`
	Total      int     `json:"total"`
	Page       int     `json:"page"`
	Limit      int     `json:"limit"`
	TotalPages int     `json:"total_pages"`
}
