// Package company exposes company accounts over HTTP: signup and login
// through the shared auth flow, and the current company profile.
package company

import (
	"context"
	"net/http"

	"github.com/frahmantamala/training-identity/internal/auth"
	"github.com/frahmantamala/training-identity/internal/authz"
	"github.com/frahmantamala/training-identity/internal/core/account"
	companyCore "github.com/frahmantamala/training-identity/internal/core/company"
)

// AuthPolicy lets a company log in with either of its addresses.
func AuthPolicy(verifyWithOTP bool) auth.Policy {
	return auth.Policy{
		Kind:             account.KindCompany,
		RequiredFields:   []string{auth.PasswordField},
		LookupFields:     []string{"primary_email", "secondary_email"},
		ResetLookupField: "primary_email",
		VerifyWithOTP:    verifyWithOTP,
		VerifyPath:       "/api/v1/auth/company/verify",
		ResetPath:        "/reset-password/company",
	}
}

// Binder adapts company signup bodies and request identities to the auth
// handler.
type Binder struct{}

func (Binder) DecodeSignup(r *http.Request, decode func(dst interface{}) error) (*companyCore.Company, string, error) {
	var dto SignupDTO
	if err := decode(&dto); err != nil {
		return nil, "", err
	}
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}
	return companyCore.New(dto.Name, dto.PrimaryEmail, dto.SecondaryEmail, dto.PhoneNumber), dto.Password, nil
}

func (Binder) Current(ctx context.Context) (*companyCore.Company, bool) {
	id, ok := authz.IdentityFromContext(ctx)
	if !ok || !id.IsCompany() {
		return nil, false
	}
	return id.Company, true
}
