// Package account holds the credential state shared by every principal that
// can authenticate, and the interface the login and lifecycle flows are
// written against.
package account

import (
	"errors"
	"time"
)

// Kind names the account collection. The values double as the
// notification recipient model.
type Kind string

const (
	KindCompany  Kind = "Company"
	KindEmployee Kind = "User"
)

type MFAMethod string

const (
	MFAEmail         MFAMethod = "email"
	MFASMS           MFAMethod = "sms"
	MFAAuthenticator MFAMethod = "authenticator"
)

func (m MFAMethod) Valid() bool {
	switch m {
	case MFAEmail, MFASMS, MFAAuthenticator:
		return true
	}
	return false
}

// MaxFailedLoginAttempts locks the account once reached.
const MaxFailedLoginAttempts = 5

var (
	ErrNotFound  = errors.New("account not found")
	ErrDuplicate = errors.New("account with the same unique field already exists")
)

type Account interface {
	AccountID() string
	AccountKind() Kind
	Auth() *Credentials
	ContactEmail() string
	DisplayName() string
	Phone() string
}

type State string

const (
	StatePendingVerification State = "pending_verification"
	StateVerified            State = "verified"
)

// Credentials is embedded by every account type. Secrets never serialize.
type Credentials struct {
	PasswordHash      string     `json:"-"`
	PasswordChangedAt *time.Time `json:"-"`

	IsVerified              bool       `json:"is_verified"`
	VerificationTokenHash   *string    `json:"-"`
	VerificationTokenExpiry *time.Time `json:"-"`

	ResetPasswordTokenHash   *string    `json:"-"`
	ResetPasswordTokenExpiry *time.Time `json:"-"`

	FailedLoginAttempts int `json:"-"`

	MFAEnabled bool       `json:"mfa_enabled"`
	MFAMethod  MFAMethod  `json:"mfa_method,omitempty"`
	OTPHash    *string    `json:"-"`
	OTPExpiry  *time.Time `json:"-"`
	TOTPSecret *string    `json:"-"`
}

func (c *Credentials) State() State {
	if c.IsVerified {
		return StateVerified
	}
	return StatePendingVerification
}

func (c *Credentials) IsLocked() bool {
	return c.FailedLoginAttempts >= MaxFailedLoginAttempts
}

func (c *Credentials) RecordFailedLogin() {
	if c.FailedLoginAttempts < MaxFailedLoginAttempts {
		c.FailedLoginAttempts++
	}
}

func (c *Credentials) ResetFailedLogins() {
	c.FailedLoginAttempts = 0
}

// SetInitialPassword hashes the signup password. passwordChangedAt stays
// empty so the token issued at signup remains valid.
func (c *Credentials) SetInitialPassword(h Hasher, plain string) error {
	hash, err := h.Hash(plain)
	if err != nil {
		return err
	}
	c.PasswordHash = hash
	return nil
}

// ChangePassword re-hashes and stamps passwordChangedAt, which invalidates
// every session token issued at or before now.
func (c *Credentials) ChangePassword(h Hasher, plain string, now time.Time) error {
	hash, err := h.Hash(plain)
	if err != nil {
		return err
	}
	c.PasswordHash = hash
	changed := now
	c.PasswordChangedAt = &changed
	return nil
}

func (c *Credentials) PasswordMatches(h Hasher, plain string) bool {
	if c.PasswordHash == "" {
		return false
	}
	return h.Compare(c.PasswordHash, plain)
}

// ChangedPasswordAfter reports whether a token issued at issuedAt predates
// the last password change.
func (c *Credentials) ChangedPasswordAfter(issuedAt time.Time) bool {
	if c.PasswordChangedAt == nil {
		return false
	}
	return !issuedAt.After(*c.PasswordChangedAt)
}

func (c *Credentials) SetVerificationToken(hash string, expiry time.Time) {
	c.VerificationTokenHash = &hash
	c.VerificationTokenExpiry = &expiry
}

func (c *Credentials) ClearVerificationToken() {
	c.VerificationTokenHash = nil
	c.VerificationTokenExpiry = nil
}

func (c *Credentials) MarkVerified() {
	c.IsVerified = true
	c.ClearVerificationToken()
}

func (c *Credentials) SetResetToken(hash string, expiry time.Time) {
	c.ResetPasswordTokenHash = &hash
	c.ResetPasswordTokenExpiry = &expiry
}

func (c *Credentials) ClearResetToken() {
	c.ResetPasswordTokenHash = nil
	c.ResetPasswordTokenExpiry = nil
}

// SetOTP stores a pending one-time code. A nil hash opens an authenticator
// challenge, where the code is derived from the TOTP secret instead.
func (c *Credentials) SetOTP(hash *string, expiry time.Time) {
	c.OTPHash = hash
	c.OTPExpiry = &expiry
}

func (c *Credentials) ClearOTP() {
	c.OTPHash = nil
	c.OTPExpiry = nil
}

func (c *Credentials) OTPPending(now time.Time) bool {
	return c.OTPExpiry != nil && now.Before(*c.OTPExpiry)
}

func (c *Credentials) EnableMFA(method MFAMethod) {
	c.MFAEnabled = true
	c.MFAMethod = method
}

func (c *Credentials) DisableMFA() {
	c.MFAEnabled = false
	c.MFAMethod = ""
	c.TOTPSecret = nil
	c.ClearOTP()
}
