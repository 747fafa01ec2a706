package auth

import (
	"context"
	stdErrors "errors"
	"strings"
	"time"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/core/events"
	"github.com/frahmantamala/training-identity/internal/token"
)

const PasswordField = "password"

// LoginResult holds either a session or a pending second factor.
type LoginResult[T account.Account] struct {
	Account     T
	Token       string
	ExpiresAt   time.Time
	OTPRequired bool
	AccountID   string
	Method      account.MFAMethod
}

// Login checks credentials in a fixed order. A locked account is rejected
// before its password is compared, and an unknown identifier fails exactly
// like a wrong password.
func (f *Flow[T]) Login(ctx context.Context, fields map[string]string) (*LoginResult[T], error) {
	var missing []string
	for _, name := range f.policy.RequiredFields {
		if strings.TrimSpace(fields[name]) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, errors.NewMissingFieldsError(missing)
	}

	filter := make(map[string]string, len(f.policy.LookupFields))
	for _, name := range f.policy.LookupFields {
		if v := normalizeEmail(fields[name]); v != "" {
			filter[name] = v
		}
	}
	if len(filter) == 0 {
		return nil, errors.ErrNoIdentifier
	}

	acc, err := f.repo.FindOne(ctx, filter)
	if err != nil {
		if stdErrors.Is(err, account.ErrNotFound) {
			return nil, errors.ErrInvalidCredentials
		}
		return nil, errors.NewInternalError("Failed to load account", err)
	}

	creds := acc.Auth()
	if creds.IsLocked() {
		return nil, errors.ErrAccountLocked
	}

	if !creds.PasswordMatches(f.hasher, fields[PasswordField]) {
		creds.RecordFailedLogin()
		if err := f.save(ctx, acc); err != nil {
			return nil, err
		}
		return nil, errors.ErrInvalidCredentials
	}

	if creds.State() != account.StateVerified {
		return nil, errors.ErrNotVerified
	}

	creds.ResetFailedLogins()

	if creds.MFAEnabled {
		return f.challenge(ctx, acc)
	}

	if err := f.save(ctx, acc); err != nil {
		return nil, err
	}
	session, err := f.issue(acc, f.settings.SessionTTL)
	if err != nil {
		return nil, err
	}
	f.publish(ctx, events.EventTypeAccountLoggedIn, acc)

	return &LoginResult[T]{Account: acc, Token: session.Token, ExpiresAt: session.ExpiresAt}, nil
}

// challenge opens the second factor. The reset counter is persisted in the
// same write as the challenge.
func (f *Flow[T]) challenge(ctx context.Context, acc T) (*LoginResult[T], error) {
	creds := acc.Auth()
	expiry := f.now().Add(f.settings.OTPTTL)

	var emailCode string
	switch creds.MFAMethod {
	case account.MFAEmail:
		code, err := f.openEmailOTP(creds)
		if err != nil {
			return nil, err
		}
		emailCode = code
	case account.MFASMS:
		if f.sms == nil || acc.Phone() == "" {
			return nil, errors.ErrOTPDispatchFailed
		}
		code, err := f.sms.RequestCode(ctx, acc.Phone())
		if err != nil {
			f.logger.Error("sms gateway failed", "account_id", acc.AccountID(), "error", err)
			return nil, errors.ErrOTPDispatchFailed.WithCause(err)
		}
		hash := token.Hash(code)
		creds.SetOTP(&hash, expiry)
	case account.MFAAuthenticator:
		if creds.TOTPSecret == nil {
			return nil, errors.NewValidationError("Authenticator app is not enrolled", errors.ErrCodeAuthenticatorNotEnabled)
		}
		creds.SetOTP(nil, expiry)
	default:
		return nil, errors.NewInternalError("Unknown MFA method", nil)
	}

	if err := f.save(ctx, acc); err != nil {
		return nil, err
	}
	if emailCode != "" {
		f.sendOTP(ctx, acc, emailCode)
	}

	return &LoginResult[T]{
		OTPRequired: true,
		AccountID:   acc.AccountID(),
		Method:      creds.MFAMethod,
	}, nil
}

// normalizeEmail matches the form addresses are stored in at signup.
func normalizeEmail(v string) string {
	return strings.ToLower(strings.TrimSpace(v))
}
