package company

import (
	"strings"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/core/common/validation"
)

// SignupDTO lists every field a company may set at signup. Anything else in
// the body fails decoding.
type SignupDTO struct {
	Name            string  `json:"name"`
	PrimaryEmail    string  `json:"primary_email"`
	SecondaryEmail  *string `json:"secondary_email,omitempty"`
	PhoneNumber     string  `json:"phone_number"`
	Password        string  `json:"password"`
	PasswordConfirm string  `json:"password_confirm"`
}

func (d *SignupDTO) Normalize() {
	d.Name = strings.TrimSpace(d.Name)
	d.PrimaryEmail = strings.ToLower(strings.TrimSpace(d.PrimaryEmail))
	d.PhoneNumber = strings.TrimSpace(d.PhoneNumber)
	if d.SecondaryEmail != nil {
		s := strings.ToLower(strings.TrimSpace(*d.SecondaryEmail))
		if s == "" {
			d.SecondaryEmail = nil
		} else {
			d.SecondaryEmail = &s
		}
	}
}

func (d *SignupDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MinLength(validation.MinNameLength).MaxLength(120)
	v.Field("primary_email", d.PrimaryEmail).Required().Email()
	v.Field("secondary_email", d.SecondaryEmail).Email().Custom(func(value interface{}) *errors.AppError {
		if d.SecondaryEmail != nil && *d.SecondaryEmail == d.PrimaryEmail {
			return errors.NewValidationFieldError("secondary_email", "secondary_email must differ from primary_email", errors.ErrCodeValidationFailed)
		}
		return nil
	})
	v.Field("phone_number", d.PhoneNumber).Required().Phone()
	if err := v.Validate(); err != nil {
		return err
	}
	if err := validation.ValidatePassword(d.Password, d.PasswordConfirm); err != nil {
		return err
	}
	return nil
}
