package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/training-identity/internal/core/datamodel"
	departmentDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/department"
	departmentCore "github.com/frahmantamala/training-identity/internal/core/department"
	"github.com/frahmantamala/training-identity/internal/department"
	employeepg "github.com/frahmantamala/training-identity/internal/employee/postgres"
	"gorm.io/gorm"
)

type DepartmentRepository struct {
	db *gorm.DB
}

func NewDepartmentRepository(db *gorm.DB) *DepartmentRepository {
	return &DepartmentRepository{db: db}
}

func (r *DepartmentRepository) withRelations(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("DepartmentAdmin").
		Preload("Employees", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		})
}

func (r *DepartmentRepository) FindByID(ctx context.Context, id string) (*departmentCore.Department, error) {
	var m departmentDatamodel.Department
	if err := r.withRelations(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, departmentCore.ErrNotFound
		}
		return nil, err
	}
	return departmentCore.FromDataModel(&m), nil
}

func (r *DepartmentRepository) ListByCompany(ctx context.Context, companyID string) ([]*departmentCore.Department, error) {
	var rows []departmentDatamodel.Department
	if err := r.withRelations(ctx).
		Where("company_id = ?", companyID).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]*departmentCore.Department, 0, len(rows))
	for i := range rows {
		out = append(out, departmentCore.FromDataModel(&rows[i]))
	}
	return out, nil
}

func (r *DepartmentRepository) Create(ctx context.Context, d *departmentCore.Department) error {
	if err := r.db.WithContext(ctx).Omit("DepartmentAdmin", "Employees").Create(departmentCore.ToDataModel(d)).Error; err != nil {
		if datamodel.IsDuplicateKey(err) {
			return departmentCore.ErrDuplicate
		}
		return err
	}
	return nil
}

// Save writes the department's name and status. Membership lives on the
// employee rows and the admin column is only written by SwapAdmin.
func (r *DepartmentRepository) Save(ctx context.Context, d *departmentCore.Department) error {
	d.UpdatedAt = time.Now()
	m := departmentCore.ToDataModel(d)
	res := r.db.WithContext(ctx).Model(&departmentDatamodel.Department{}).
		Where("id = ?", d.ID).
		Updates(map[string]interface{}{
			"name":       m.Name,
			"is_active":  m.IsActive,
			"updated_at": m.UpdatedAt,
		})
	if res.Error != nil {
		if datamodel.IsDuplicateKey(res.Error) {
			return departmentCore.ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return departmentCore.ErrNotFound
	}
	return nil
}

func (r *DepartmentRepository) SwapAdmin(ctx context.Context, id string, from, to *string) error {
	q := r.db.WithContext(ctx).Model(&departmentDatamodel.Department{}).Where("id = ?", id)
	if from == nil {
		q = q.Where("department_admin_id IS NULL")
	} else {
		q = q.Where("department_admin_id = ?", *from)
	}

	res := q.Updates(map[string]interface{}{
		"department_admin_id": to,
		"updated_at":          time.Now(),
	})
	if res.Error != nil {
		if datamodel.IsDuplicateKey(res.Error) {
			return departmentCore.ErrDuplicate
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return departmentCore.ErrStale
	}
	return nil
}

// Store binds the department and employee repositories to one gorm handle.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Departments() department.DepartmentRepository {
	return NewDepartmentRepository(s.db)
}

func (s *Store) Employees() department.EmployeeRepository {
	return employeepg.NewEmployeeRepository(s.db)
}

func (s *Store) Atomic(ctx context.Context, fn func(tx department.Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Store{db: tx})
	})
}
