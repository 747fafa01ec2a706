package auth

import (
	"sort"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/core/common/validation"
)

type VerifyOTPDTO struct {
	ID  string `json:"id"`
	OTP string `json:"otp"`
}

func (d *VerifyOTPDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("id", d.ID).Required()
	v.Field("otp", d.OTP).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type PasswordResetRequestDTO struct {
	Email string `json:"email"`
}

type ResetPasswordDTO struct {
	ID              string `json:"id"`
	Token           string `json:"token"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
}

func (d *ResetPasswordDTO) Validate() error {
	var missing []string
	for field, value := range map[string]string{
		"id":               d.ID,
		"token":            d.Token,
		"password":         d.Password,
		"password_confirm": d.PasswordConfirm,
	} {
		if value == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errors.NewMissingFieldsError(missing)
	}
	return nil
}

type ConfigureMFADTO struct {
	Method string `json:"method"`
}

type ConfirmMFADTO struct {
	Code string `json:"code"`
}

type DisableMFADTO struct {
	Password string `json:"password"`
}

// LoginDTO carries every identifier either account kind may log in with.
// The flow policy decides which of them count.
type LoginDTO struct {
	Email          string `json:"email,omitempty"`
	PrimaryEmail   string `json:"primary_email,omitempty"`
	SecondaryEmail string `json:"secondary_email,omitempty"`
	Password       string `json:"password"`
}

func (d *LoginDTO) Fields() map[string]string {
	return map[string]string{
		"email":           d.Email,
		"primary_email":   d.PrimaryEmail,
		"secondary_email": d.SecondaryEmail,
		PasswordField:     d.Password,
	}
}

type LoginResponse struct {
	OTPRequired bool   `json:"otp_required"`
	AccountID   string `json:"account_id"`
	Method      string `json:"method"`
}
