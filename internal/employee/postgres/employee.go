package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/core/datamodel"
	accountDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/account"
	employeeDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/employee"
	"github.com/frahmantamala/training-identity/internal/core/employee"
	"gorm.io/gorm"
)

// EmployeeRepository implements the employee stores using GORM
type EmployeeRepository struct {
	db *gorm.DB
}

func NewEmployeeRepository(db *gorm.DB) *EmployeeRepository {
	return &EmployeeRepository{db: db}
}

func (r *EmployeeRepository) FindByID(ctx context.Context, id string) (*employee.Employee, error) {
	var m employeeDatamodel.Employee
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return employee.FromDataModel(&m), nil
}

func (r *EmployeeRepository) FindOne(ctx context.Context, filter map[string]string) (*employee.Employee, error) {
	where := make(map[string]interface{}, len(filter))
	for k, v := range filter {
		where[k] = v
	}

	var m employeeDatamodel.Employee
	if err := r.db.WithContext(ctx).Where(where).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return employee.FromDataModel(&m), nil
}

func (r *EmployeeRepository) ListByDepartment(ctx context.Context, departmentID string) ([]*employee.Employee, error) {
	var rows []employeeDatamodel.Employee
	if err := r.db.WithContext(ctx).
		Where("department_id = ?", departmentID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*employee.Employee, 0, len(rows))
	for i := range rows {
		out = append(out, employee.FromDataModel(&rows[i]))
	}
	return out, nil
}

func (r *EmployeeRepository) Create(ctx context.Context, e *employee.Employee) error {
	if err := r.db.WithContext(ctx).Create(employee.ToDataModel(e)).Error; err != nil {
		if datamodel.IsDuplicateKey(err) {
			return account.ErrDuplicate
		}
		return err
	}
	return nil
}

// SaveCredentials writes only the credential columns, so a concurrent
// department change to the same row survives.
func (r *EmployeeRepository) SaveCredentials(ctx context.Context, e *employee.Employee) error {
	return r.update(ctx, e, append(accountDatamodel.CredentialColumns(), "updated_at"))
}

// SaveAssignment writes the department membership, role and approval.
func (r *EmployeeRepository) SaveAssignment(ctx context.Context, e *employee.Employee) error {
	return r.update(ctx, e, []string{"role", "department_id", "is_approved", "updated_at"})
}

func (r *EmployeeRepository) update(ctx context.Context, e *employee.Employee, columns []string) error {
	e.UpdatedAt = time.Now()
	m := employee.ToDataModel(e)
	res := r.db.WithContext(ctx).Model(m).Select(columns).Updates(m)
	if res.Error != nil {
		if datamodel.IsDuplicateKey(res.Error) {
			return account.ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return account.ErrNotFound
	}
	return nil
}
