package auth

import (
	"context"
	stdErrors "errors"
	"time"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/core/common/validation"
	"github.com/frahmantamala/training-identity/internal/core/events"
	"github.com/frahmantamala/training-identity/internal/token"
)

// Signup persists a new account in pending verification, sends the
// verification link (or code) and logs the account in.
func (f *Flow[T]) Signup(ctx context.Context, acc T, password string) (*SessionResult[T], error) {
	creds := acc.Auth()
	if err := creds.SetInitialPassword(f.hasher, password); err != nil {
		return nil, errors.NewInternalError("Failed to hash password", err)
	}

	var (
		plain string
		err   error
	)
	if f.policy.VerifyWithOTP {
		plain, err = f.openEmailOTP(creds)
	} else {
		plain, err = f.openVerificationToken(creds)
	}
	if err != nil {
		return nil, err
	}

	if err := f.repo.Create(ctx, acc); err != nil {
		if stdErrors.Is(err, account.ErrDuplicate) {
			return nil, errors.ErrDuplicateAccount
		}
		return nil, errors.NewInternalError("Failed to create account", err)
	}

	if f.policy.VerifyWithOTP {
		f.sendOTP(ctx, acc, plain)
	} else {
		f.sendVerification(ctx, acc, plain)
	}
	f.publish(ctx, events.EventTypeAccountRegistered, acc)

	return f.issue(acc, f.settings.SessionTTL)
}

// VerifyByToken consumes a verification link. A matching but expired token
// is replaced and re-sent before the request fails.
func (f *Flow[T]) VerifyByToken(ctx context.Context, id, plain string) (T, error) {
	var zero T
	if id == "" || plain == "" {
		return zero, errors.ErrInvalidOrExpiredToken
	}

	acc, err := f.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, account.ErrNotFound) {
			return zero, errors.ErrInvalidOrExpiredToken
		}
		return zero, errors.NewInternalError("Failed to load account", err)
	}

	creds := acc.Auth()
	if !token.Matches(plain, creds.VerificationTokenHash) {
		return zero, errors.ErrInvalidOrExpiredToken
	}

	if creds.VerificationTokenExpiry == nil || !f.now().Before(*creds.VerificationTokenExpiry) {
		fresh, err := f.openVerificationToken(creds)
		if err != nil {
			return zero, err
		}
		if err := f.save(ctx, acc); err != nil {
			return zero, err
		}
		f.sendVerification(ctx, acc, fresh)
		return zero, errors.ErrVerificationExpired
	}

	creds.MarkVerified()
	if err := f.save(ctx, acc); err != nil {
		return zero, err
	}
	return acc, nil
}

// VerifyByOTP consumes a pending code. It serves both signup verification
// and the second login step, so it always logs the account in with the
// extended lifetime.
func (f *Flow[T]) VerifyByOTP(ctx context.Context, id, code string) (*SessionResult[T], error) {
	if id == "" || code == "" {
		return nil, errors.ErrInvalidOrExpiredOTP
	}

	acc, err := f.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, account.ErrNotFound) {
			return nil, errors.ErrInvalidOrExpiredOTP
		}
		return nil, errors.NewInternalError("Failed to load account", err)
	}

	creds := acc.Auth()
	if creds.IsLocked() {
		return nil, errors.ErrAccountLocked
	}
	now := f.now()
	if !creds.OTPPending(now) {
		return nil, errors.ErrInvalidOrExpiredOTP
	}

	// Wrong codes count toward the login lockout; locking drops the
	// pending code.
	if !otpMatches(creds, code, now) {
		creds.RecordFailedLogin()
		if creds.IsLocked() {
			creds.ClearOTP()
		}
		if err := f.save(ctx, acc); err != nil {
			return nil, err
		}
		return nil, errors.ErrInvalidOrExpiredOTP
	}

	creds.ClearOTP()
	creds.ResetFailedLogins()
	creds.MarkVerified()
	if err := f.save(ctx, acc); err != nil {
		return nil, err
	}
	f.publish(ctx, events.EventTypeAccountOTPVerified, acc)

	return f.issue(acc, f.settings.RememberTTL)
}

func otpMatches(creds *account.Credentials, code string, now time.Time) bool {
	switch {
	case creds.OTPHash != nil:
		return token.Matches(code, creds.OTPHash)
	case creds.MFAMethod == account.MFAAuthenticator && creds.TOTPSecret != nil:
		return token.ValidateTOTP(code, *creds.TOTPSecret, now)
	}
	return false
}

// RequestPasswordReset answers the same way whether or not an account
// matches, so the response cannot be used to probe for addresses.
func (f *Flow[T]) RequestPasswordReset(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	v := validation.NewValidator()
	v.Field(f.policy.ResetLookupField, email).Required().Email()
	if err := v.Validate(); err != nil {
		return err
	}

	acc, err := f.repo.FindOne(ctx, map[string]string{f.policy.ResetLookupField: email})
	if err != nil {
		if stdErrors.Is(err, account.ErrNotFound) {
			f.logger.Info("password reset requested for unknown address")
			return nil
		}
		return errors.NewInternalError("Failed to load account", err)
	}

	plain, hash, err := token.NewOpaqueToken()
	if err != nil {
		return errors.NewInternalError("Failed to generate reset token", err)
	}
	acc.Auth().SetResetToken(hash, f.now().Add(f.settings.ResetTokenTTL))
	if err := f.save(ctx, acc); err != nil {
		return err
	}

	msg := PasswordResetMessage{
		To:   acc.ContactEmail(),
		Name: acc.DisplayName(),
		URL:  f.resetURL(acc.AccountID(), plain),
	}
	if err := f.notifier.SendPasswordReset(ctx, msg); err != nil {
		f.logger.Error("failed to send password reset", "account_id", acc.AccountID(), "error", err)
	}
	return nil
}

// ResetPassword replaces the password with a single-use reset token. Every
// session issued before the change stops working and the lockout clears.
func (f *Flow[T]) ResetPassword(ctx context.Context, id, plain, password, passwordConfirm string) (T, error) {
	var zero T
	if password != passwordConfirm {
		return zero, errors.ErrPasswordMismatch
	}
	if err := validation.ValidatePassword(password, passwordConfirm); err != nil {
		return zero, err
	}
	if id == "" || plain == "" {
		return zero, errors.ErrInvalidOrExpiredToken
	}

	acc, err := f.repo.FindByID(ctx, id)
	if err != nil {
		if stdErrors.Is(err, account.ErrNotFound) {
			return zero, errors.ErrInvalidOrExpiredToken
		}
		return zero, errors.NewInternalError("Failed to load account", err)
	}

	creds := acc.Auth()
	now := f.now()
	if !token.Matches(plain, creds.ResetPasswordTokenHash) ||
		creds.ResetPasswordTokenExpiry == nil || !now.Before(*creds.ResetPasswordTokenExpiry) {
		return zero, errors.ErrInvalidOrExpiredToken
	}

	if err := creds.ChangePassword(f.hasher, password, now); err != nil {
		return zero, errors.NewInternalError("Failed to hash password", err)
	}
	creds.ClearResetToken()
	creds.ResetFailedLogins()
	if err := f.save(ctx, acc); err != nil {
		return zero, err
	}
	f.publish(ctx, events.EventTypeAccountPasswordReset, acc)

	return acc, nil
}

func (f *Flow[T]) openVerificationToken(creds *account.Credentials) (string, error) {
	plain, hash, err := token.NewOpaqueToken()
	if err != nil {
		return "", errors.NewInternalError("Failed to generate verification token", err)
	}
	creds.SetVerificationToken(hash, f.now().Add(f.settings.VerificationTokenTTL))
	return plain, nil
}

func (f *Flow[T]) openEmailOTP(creds *account.Credentials) (string, error) {
	code, err := token.NewNumericOTP()
	if err != nil {
		return "", errors.NewInternalError("Failed to generate OTP", err)
	}
	hash := token.Hash(code)
	creds.SetOTP(&hash, f.now().Add(f.settings.OTPTTL))
	return code, nil
}

func (f *Flow[T]) sendVerification(ctx context.Context, acc T, plain string) {
	msg := VerificationMessage{
		To:   acc.ContactEmail(),
		Name: acc.DisplayName(),
		URL:  f.verificationURL(acc.AccountID(), plain),
	}
	if err := f.notifier.SendVerification(ctx, msg); err != nil {
		f.logger.Error("failed to send verification", "account_id", acc.AccountID(), "error", err)
	}
}

func (f *Flow[T]) sendOTP(ctx context.Context, acc T, code string) {
	msg := OTPMessage{To: acc.ContactEmail(), Name: acc.DisplayName(), Code: code}
	if err := f.notifier.SendOTP(ctx, msg); err != nil {
		f.logger.Error("failed to send otp", "account_id", acc.AccountID(), "error", err)
	}
}
