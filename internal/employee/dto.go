package employee

import (
	"strings"

	"github.com/frahmantamala/training-identity/internal/core/common/validation"
)

// SignupDTO lists every field an employee may set at signup. Role,
// department and approval are managed by the company.
type SignupDTO struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phone_number"`
	CompanyID       string `json:"company_id"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

func (d *SignupDTO) Normalize() {
	d.FullName = strings.TrimSpace(d.FullName)
	d.Email = strings.ToLower(strings.TrimSpace(d.Email))
	d.PhoneNumber = strings.TrimSpace(d.PhoneNumber)
	d.CompanyID = strings.TrimSpace(d.CompanyID)
}

func (d *SignupDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("full_name", d.FullName).Required().MinLength(validation.MinNameLength).MaxLength(120)
	v.Field("email", d.Email).Required().Email()
	v.Field("phone_number", d.PhoneNumber).Required().Phone()
	v.Field("company_id", d.CompanyID).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	if err := validation.ValidatePassword(d.Password, d.PasswordConfirm); err != nil {
		return err
	}
	return nil
}
