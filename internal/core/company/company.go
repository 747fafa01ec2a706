package company

import (
	"time"

	"github.com/frahmantamala/training-identity/internal/core/account"
	companyDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/company"
	"github.com/google/uuid"
)

type DepartmentRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Company struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	PrimaryEmail   string          `json:"primary_email"`
	SecondaryEmail *string         `json:"secondary_email,omitempty"`
	PhoneNumber    string          `json:"phone_number"`
	Departments    []DepartmentRef `json:"departments"`

	account.Credentials

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func New(name, primaryEmail string, secondaryEmail *string, phone string) *Company {
	now := time.Now()
	return &Company{
		ID:             uuid.NewString(),
		Name:           name,
		PrimaryEmail:   primaryEmail,
		SecondaryEmail: secondaryEmail,
		PhoneNumber:    phone,
		Departments:    []DepartmentRef{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

func (c *Company) AccountID() string { return c.ID }
func (c *Company) AccountKind() account.Kind { return account.KindCompany }
func (c *Company) Auth() *account.Credentials { return &c.Credentials }
func (c *Company) ContactEmail() string { return c.PrimaryEmail }
func (c *Company) DisplayName() string { return c.Name }
func (c *Company) Phone() string { return c.PhoneNumber }

// OwnsDepartment checks the loaded department projection.
func (c *Company) OwnsDepartment(departmentID string) bool {
	for _, d := range c.Departments {
		if d.ID == departmentID {
			return true
		}
	}
	return false
}

func ToDataModel(c *Company) *companyDatamodel.Company {
	return &companyDatamodel.Company{
		ID:             c.ID,
		Name:           c.Name,
		PrimaryEmail:   c.PrimaryEmail,
		SecondaryEmail: c.SecondaryEmail,
		PhoneNumber:    c.PhoneNumber,
		Credentials:    account.ToDataModel(c.Credentials),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func FromDataModel(c *companyDatamodel.Company) *Company {
	co := &Company{
		ID:             c.ID,
		Name:           c.Name,
		PrimaryEmail:   c.PrimaryEmail,
		SecondaryEmail: c.SecondaryEmail,
		PhoneNumber:    c.PhoneNumber,
		Departments:    make([]DepartmentRef, 0, len(c.Departments)),
		Credentials:    account.FromDataModel(c.Credentials),
		CreatedAt:      c.CreatedAt,
		UpdatedAt:      c.UpdatedAt,
	}
	for _, d := range c.Departments {
		co.Departments = append(co.Departments, DepartmentRef{ID: d.ID, Name: d.Name})
	}
	return co
}
