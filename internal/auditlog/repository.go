package auditlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository writes audit entries with sqlx. It shares the connection pool
// with the gorm repositories.
type Repository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

type row struct {
	ID           string    `db:"id"`
	Action       string    `db:"action"`
	CompanyID    string    `db:"company_id"`
	DepartmentID *string   `db:"department_id"`
	EmployeeID   *string   `db:"employee_id"`
	Details      *string   `db:"details"`
	IP           string    `db:"ip"`
	UserAgent    string    `db:"user_agent"`
	CreatedAt    time.Time `db:"created_at"`
	Actor
}

const insertEntry = `
INSERT INTO audit_logs (
  id, action, performed_by_id, performed_by_model, performed_by_role, performed_by_name, performed_by_email,
  company_id, department_id, employee_id, details, ip, user_agent, created_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (r *Repository) Log(ctx context.Context, e Entry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = r.now()
	}

	var details *string
	if len(e.Details) > 0 {
		raw, err := json.Marshal(e.Details)
		if err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
		s := string(raw)
		details = &s
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(insertEntry),
		e.ID, string(e.Action),
		e.PerformedBy.ID, e.PerformedBy.Model, e.PerformedBy.Role, e.PerformedBy.Name, e.PerformedBy.Email,
		e.CompanyID, e.DepartmentID, e.EmployeeID, details, e.IP, e.UserAgent, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit log: %w", err)
	}
	return nil
}

// ListByDepartment returns the newest entries first.
func (r *Repository) ListByDepartment(ctx context.Context, departmentID string, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	var total int
	if err := r.db.GetContext(ctx, &total, r.db.Rebind(`SELECT COUNT(*) FROM audit_logs WHERE department_id = ?`), departmentID); err != nil {
		return nil, fmt.Errorf("count audit logs: %w", err)
	}

	var rows []row
	query := r.db.Rebind(`
SELECT id, action, performed_by_id, performed_by_model, performed_by_role, performed_by_name, performed_by_email,
       company_id, department_id, employee_id, details, ip, user_agent, created_at
FROM audit_logs
WHERE department_id = ?
ORDER BY created_at DESC
LIMIT ? OFFSET ?`)
	if err := r.db.SelectContext(ctx, &rows, query, departmentID, limit, (page-1)*limit); err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}

	entries := make([]Entry, 0, len(rows))
	for _, rw := range rows {
		e := Entry{
			ID:           rw.ID,
			Action:       Action(rw.Action),
			PerformedBy:  rw.Actor,
			CompanyID:    rw.CompanyID,
			DepartmentID: rw.DepartmentID,
			EmployeeID:   rw.EmployeeID,
			IP:           rw.IP,
			UserAgent:    rw.UserAgent,
			CreatedAt:    rw.CreatedAt,
		}
		if rw.Details != nil {
			if err := json.Unmarshal([]byte(*rw.Details), &e.Details); err != nil {
				return nil, fmt.Errorf("decode audit details: %w", err)
			}
		}
		entries = append(entries, e)
	}

	return &Page{
		Entries:    entries,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}
