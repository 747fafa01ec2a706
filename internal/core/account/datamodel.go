package account

import (
	accountDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/account"
)

func ToDataModel(c Credentials) accountDatamodel.Credentials {
	return accountDatamodel.Credentials{
		PasswordHash:             c.PasswordHash,
		PasswordChangedAt:        c.PasswordChangedAt,
		IsVerified:               c.IsVerified,
		VerificationTokenHash:    c.VerificationTokenHash,
		VerificationTokenExpiry:  c.VerificationTokenExpiry,
		ResetPasswordTokenHash:   c.ResetPasswordTokenHash,
		ResetPasswordTokenExpiry: c.ResetPasswordTokenExpiry,
		FailedLoginAttempts:      c.FailedLoginAttempts,
		MFAEnabled:               c.MFAEnabled,
		MFAMethod:                string(c.MFAMethod),
		OTPHash:                  c.OTPHash,
		OTPExpiry:                c.OTPExpiry,
		TOTPSecret:               c.TOTPSecret,
	}
}

func FromDataModel(d accountDatamodel.Credentials) Credentials {
	return Credentials{
		PasswordHash:             d.PasswordHash,
		PasswordChangedAt:        d.PasswordChangedAt,
		IsVerified:               d.IsVerified,
		VerificationTokenHash:    d.VerificationTokenHash,
		VerificationTokenExpiry:  d.VerificationTokenExpiry,
		ResetPasswordTokenHash:   d.ResetPasswordTokenHash,
		ResetPasswordTokenExpiry: d.ResetPasswordTokenExpiry,
		FailedLoginAttempts:      d.FailedLoginAttempts,
		MFAEnabled:               d.MFAEnabled,
		MFAMethod:                MFAMethod(d.MFAMethod),
		OTPHash:                  d.OTPHash,
		OTPExpiry:                d.OTPExpiry,
		TOTPSecret:               d.TOTPSecret,
	}
}
