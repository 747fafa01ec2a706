package auth

import (
	"context"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/token"
)

// MFASetup is returned when authenticator enrollment starts.
type MFASetup struct {
	Method account.MFAMethod `json:"method"`
	Secret string            `json:"secret,omitempty"`
	URL    string            `json:"otpauth_url,omitempty"`
}

// ConfigureMFA turns on email or sms codes immediately. The authenticator
// method only stores a secret; ConfirmAuthenticator enables it.
func (f *Flow[T]) ConfigureMFA(ctx context.Context, acc T, method account.MFAMethod) (*MFASetup, error) {
	if !method.Valid() {
		return nil, errors.NewValidationFieldError("method", "method must be one of: email, sms, authenticator", errors.ErrCodeValidationFailed)
	}
	creds := acc.Auth()

	switch method {
	case account.MFASMS:
		if acc.Phone() == "" {
			return nil, errors.NewValidationFieldError("phone_number", "A phone number is required for sms codes", errors.ErrCodeValidationFailed)
		}
		creds.EnableMFA(method)
	case account.MFAEmail:
		creds.EnableMFA(method)
	case account.MFAAuthenticator:
		key, err := token.GenerateTOTP(f.settings.Issuer, acc.ContactEmail())
		if err != nil {
			return nil, errors.NewInternalError("Failed to generate authenticator secret", err)
		}
		creds.TOTPSecret = &key.Secret
		if err := f.save(ctx, acc); err != nil {
			return nil, err
		}
		return &MFASetup{Method: method, Secret: key.Secret, URL: key.URL}, nil
	}

	if err := f.save(ctx, acc); err != nil {
		return nil, err
	}
	return &MFASetup{Method: method}, nil
}

func (f *Flow[T]) ConfirmAuthenticator(ctx context.Context, acc T, code string) error {
	creds := acc.Auth()
	if creds.TOTPSecret == nil {
		return errors.NewValidationError("Authenticator app is not enrolled", errors.ErrCodeAuthenticatorNotEnabled)
	}
	if !token.ValidateTOTP(code, *creds.TOTPSecret, f.now()) {
		return errors.ErrInvalidOrExpiredOTP
	}
	creds.EnableMFA(account.MFAAuthenticator)
	return f.save(ctx, acc)
}

func (f *Flow[T]) DisableMFA(ctx context.Context, acc T, password string) error {
	creds := acc.Auth()
	if !creds.PasswordMatches(f.hasher, password) {
		return errors.ErrInvalidCredentials
	}
	creds.DisableMFA()
	return f.save(ctx, acc)
}
