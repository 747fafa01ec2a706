package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/core/company"
	"github.com/frahmantamala/training-identity/internal/core/datamodel"
	accountDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/account"
	companyDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/company"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CompanyRepository stores companies with GORM. Departments are read from
// their own table in the same call.
type CompanyRepository struct {
	db *gorm.DB
}

func NewCompanyRepository(db *gorm.DB) *CompanyRepository {
	return &CompanyRepository{db: db}
}

func (r *CompanyRepository) withDepartments(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Departments", func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at ASC")
	})
}

func (r *CompanyRepository) FindByID(ctx context.Context, id string) (*company.Company, error) {
	var m companyDatamodel.Company
	if err := r.withDepartments(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return company.FromDataModel(&m), nil
}

// FindOne matches every column in filter.
func (r *CompanyRepository) FindOne(ctx context.Context, filter map[string]string) (*company.Company, error) {
	where := make(map[string]interface{}, len(filter))
	for k, v := range filter {
		where[k] = v
	}

	var m companyDatamodel.Company
	if err := r.withDepartments(ctx).Where(where).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, account.ErrNotFound
		}
		return nil, err
	}
	return company.FromDataModel(&m), nil
}

func (r *CompanyRepository) Create(ctx context.Context, c *company.Company) error {
	m := company.ToDataModel(c)
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(m).Error; err != nil {
		if datamodel.IsDuplicateKey(err) {
			return account.ErrDuplicate
		}
		return err
	}
	return nil
}

// SaveCredentials writes only the credential columns.
func (r *CompanyRepository) SaveCredentials(ctx context.Context, c *company.Company) error {
	c.UpdatedAt = time.Now()
	m := company.ToDataModel(c)
	res := r.db.WithContext(ctx).Model(m).
		Omit(clause.Associations).
		Select(append(accountDatamodel.CredentialColumns(), "updated_at")).
		Updates(m)
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
