package account

import "time"

// Credentials is embedded into every account table.
type Credentials struct {
	PasswordHash             string     `gorm:"column:password_hash;not null"`
	PasswordChangedAt        *time.Time `gorm:"column:password_changed_at"`
	IsVerified               bool       `gorm:"column:is_verified;not null;default:false"`
	VerificationTokenHash    *string    `gorm:"column:verification_token_hash"`
	VerificationTokenExpiry  *time.Time `gorm:"column:verification_token_expiry"`
	ResetPasswordTokenHash   *string    `gorm:"column:reset_password_token_hash"`
	ResetPasswordTokenExpiry *time.Time `gorm:"column:reset_password_token_expiry"`
	FailedLoginAttempts      int        `gorm:"column:failed_login_attempts;not null;default:0"`
	MFAEnabled               bool       `gorm:"column:mfa_enabled;not null;default:false"`
	MFAMethod                string     `gorm:"column:mfa_method"`
	OTPHash                  *string    `gorm:"column:otp_hash"`
	OTPExpiry                *time.Time `gorm:"column:otp_expiry"`
	TOTPSecret               *string    `gorm:"column:totp_secret"`
}

// CredentialColumns are the columns owned by the login and lifecycle flows.
// Credential writes touch nothing else on the row.
func CredentialColumns() []string {
	return []string{
		"password_hash",
		"password_changed_at",
		"is_verified",
		"verification_token_hash",
		"verification_token_expiry",
		"reset_password_token_hash",
		"reset_password_token_expiry",
		"failed_login_attempts",
		"mfa_enabled",
		"mfa_method",
		"otp_hash",
		"otp_expiry",
		"totp_secret",
	}
}
