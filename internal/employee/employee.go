// Package employee exposes employee accounts over HTTP.
package employee

import (
	"context"
	stdErrors "errors"
	"net/http"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/auth"
	"github.com/frahmantamala/training-identity/internal/authz"
	"github.com/frahmantamala/training-identity/internal/core/account"
	companyCore "github.com/frahmantamala/training-identity/internal/core/company"
	employeeCore "github.com/frahmantamala/training-identity/internal/core/employee"
)

func AuthPolicy(verifyWithOTP bool) auth.Policy {
	return auth.Policy{
		Kind:             account.KindEmployee,
		RequiredFields:   []string{"email", auth.PasswordField},
		LookupFields:     []string{"email"},
		ResetLookupField: "email",
		VerifyWithOTP:    verifyWithOTP,
		VerifyPath:       "/api/v1/auth/employee/verify",
		ResetPath:        "/reset-password/employee",
	}
}

type CompanyLookup interface {
	FindByID(ctx context.Context, id string) (*companyCore.Company, error)
}

// Binder builds employees from signup bodies. The referenced company must
// exist.
type Binder struct {
	Companies CompanyLookup
}

func (b Binder) DecodeSignup(r *http.Request, decode func(dst interface{}) error) (*employeeCore.Employee, string, error) {
	var dto SignupDTO
	if err := decode(&dto); err != nil {
		return nil, "", err
	}
	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, "", err
	}

	if _, err := b.Companies.FindByID(r.Context(), dto.CompanyID); err != nil {
		if stdErrors.Is(err, account.ErrNotFound) {
			return nil, "", errors.NewValidationFieldError("company_id", "company_id does not reference a company", errors.ErrCodeValidationFailed)
		}
		return nil, "", errors.NewInternalError("Failed to load company", err)
	}

	e := employeeCore.New(dto.FullName, dto.Email, dto.PhoneNumber, dto.CompanyID, nil)
	return e, dto.Password, nil
}

func (Binder) Current(ctx context.Context) (*employeeCore.Employee, bool) {
	id, ok := authz.IdentityFromContext(ctx)
	if !ok || !id.IsEmployee() {
		return nil, false
	}
	return id.Employee, true
}
