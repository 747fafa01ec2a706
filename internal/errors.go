package internal

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"
	ErrorTypeForbidden    ErrorType = "FORBIDDEN"
	ErrorTypeConflict     ErrorType = "CONFLICT"
	ErrorTypeDependency   ErrorType = "DEPENDENCY_FAILURE"
	ErrorTypeInternal     ErrorType = "INTERNAL_ERROR"
)

type ErrorCode string

const (
	ErrCodeValidationFailed         ErrorCode = "VALIDATION_FAILED"
	ErrCodeMissingFields            ErrorCode = "MISSING_FIELDS"
	ErrCodeNoIdentifier             ErrorCode = "NO_IDENTIFIER"
	ErrCodePasswordMismatch         ErrorCode = "PASSWORD_MISMATCH"
	ErrCodeInvalidOrExpiredToken    ErrorCode = "INVALID_OR_EXPIRED_TOKEN"
	ErrCodeVerificationTokenExpired ErrorCode = "VERIFICATION_TOKEN_EXPIRED"
	ErrCodeInvalidOrExpiredOTP      ErrorCode = "INVALID_OR_EXPIRED_OTP"
	ErrCodeDuplicateAccount         ErrorCode = "DUPLICATE_ACCOUNT"
	ErrCodeInvalidFormat            ErrorCode = "INVALID_FORMAT"

	ErrCodeUnauthenticated    ErrorCode = "UNAUTHENTICATED"
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeInvalidToken       ErrorCode = "INVALID_TOKEN"
	ErrCodePasswordChanged    ErrorCode = "PASSWORD_CHANGED"

	ErrCodeForbidden     ErrorCode = "FORBIDDEN"
	ErrCodeNotVerified   ErrorCode = "NOT_VERIFIED"
	ErrCodeAccountLocked ErrorCode = "ACCOUNT_LOCKED"

	ErrCodeAccountNotFound      ErrorCode = "ACCOUNT_NOT_FOUND"
	ErrCodeDepartmentNotFound   ErrorCode = "DEPARTMENT_NOT_FOUND"
	ErrCodeEmployeeNotFound     ErrorCode = "EMPLOYEE_NOT_FOUND"
	ErrCodeNotificationNotFound ErrorCode = "NOTIFICATION_NOT_FOUND"

	ErrCodeAlreadyInState          ErrorCode = "ALREADY_IN_STATE"
	ErrCodeDepartmentAdministered  ErrorCode = "DEPARTMENT_ADMINISTERED"
	ErrCodeAlreadyAssigned         ErrorCode = "ALREADY_ASSIGNED"
	ErrCodeNotDepartmentAdmin      ErrorCode = "NOT_DEPARTMENT_ADMIN"
	ErrCodeOTPDispatchFailed       ErrorCode = "OTP_DISPATCH_FAILED"
	ErrCodeAuditLogFailed          ErrorCode = "AUDIT_LOG_FAILED"
	ErrCodeInternal                ErrorCode = "INTERNAL_ERROR"
	ErrCodeRateLimited             ErrorCode = "RATE_LIMITED"
	ErrCodeAuthenticatorNotEnabled ErrorCode = "AUTHENTICATOR_NOT_ENROLLED"
)

type AppError struct {
	Type       ErrorType   `json:"type"`
	Code       ErrorCode   `json:"code"`
	Message    string      `json:"message"`
	Details    interface{} `json:"details,omitempty"`
	StatusCode int         `json:"-"`
	Cause      error       `json:"-"`
}

func (e *AppError) Error() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok && len(validationErrors.Errors) > 0 {
			return validationErrors.Errors[0].Message
		}
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) GetDetailedMessage() string {
	if e.Details != nil {
		if validationErrors, ok := e.Details.(ValidationErrors); ok {
			if len(validationErrors.Errors) == 1 {
				return validationErrors.Errors[0].Message
			} else if len(validationErrors.Errors) > 1 {
				messages := make([]string, len(validationErrors.Errors))
				for i, err := range validationErrors.Errors {
					messages[i] = err.Message
				}
				return strings.Join(messages, "; ")
			}
		}
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Is matches on Code so callers can compare against the sentinels below
// even when a copy carries extra details.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy; sentinels are shared and must not be mutated.
func (e *AppError) WithCause(cause error) *AppError {
	cp := *e
	cp.Cause = cause
	return &cp
}

func (e *AppError) WithDetails(details interface{}) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsServerError reports whether the error renders as a 5xx.
func (e *AppError) IsServerError() bool {
	return e.StatusCode >= http.StatusInternalServerError
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func NewValidationError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewValidationFieldError(field, message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeValidationFailed,
		Message:    "Validation failed",
		StatusCode: http.StatusBadRequest,
		Details: ValidationErrors{
			Errors: []ValidationError{
				{Field: field, Message: message, Code: string(code)},
			},
		},
	}
}

func NewNotFoundError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeNotFound,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}

func NewUnauthorizedError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeUnauthorized,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusUnauthorized,
	}
}

func NewForbiddenError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeForbidden,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusForbidden,
	}
}

// NewConflictError renders as 400: an already-in-state request is a client
// error in this API, not a 409.
func NewConflictError(message string, code ErrorCode) *AppError {
	return &AppError{
		Type:       ErrorTypeConflict,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusBadRequest,
	}
}

func NewDependencyError(message string, code ErrorCode, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeDependency,
		Code:       code,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Code:       ErrCodeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Cause:      cause,
	}
}

var (
	ErrNoIdentifier          = NewValidationError("Please provide an email address to log in", ErrCodeNoIdentifier)
	ErrPasswordMismatch      = NewValidationError("Passwords do not match", ErrCodePasswordMismatch)
	ErrInvalidOrExpiredToken = NewValidationError("Token is invalid or has expired", ErrCodeInvalidOrExpiredToken)
	ErrVerificationExpired   = NewValidationError("Verification link has expired. A new link has been sent to your email", ErrCodeVerificationTokenExpired)
	ErrInvalidOrExpiredOTP   = NewValidationError("OTP is invalid or has expired", ErrCodeInvalidOrExpiredOTP)
	ErrDuplicateAccount      = NewValidationError("An account with this email or phone number already exists", ErrCodeDuplicateAccount)
	ErrInvalidRequestBody    = NewValidationError("Invalid request body", ErrCodeInvalidFormat)

	ErrUnauthenticated    = NewUnauthorizedError("You are not logged in. Please log in to get access", ErrCodeUnauthenticated)
	ErrInvalidCredentials = NewUnauthorizedError("Incorrect credentials", ErrCodeInvalidCredentials)
	ErrInvalidToken       = NewUnauthorizedError("Invalid or expired session token", ErrCodeInvalidToken)
	ErrPasswordChanged    = NewUnauthorizedError("Password was recently changed. Please log in again", ErrCodePasswordChanged)

	ErrForbidden     = NewForbiddenError("You do not have permission to perform this action", ErrCodeForbidden)
	ErrNotVerified   = NewForbiddenError("Please verify your email address to continue", ErrCodeNotVerified)
	ErrAccountLocked = NewForbiddenError("Account is locked after too many failed login attempts", ErrCodeAccountLocked)

	ErrAccountNotFound      = NewNotFoundError("Account not found", ErrCodeAccountNotFound)
	ErrDepartmentNotFound   = NewNotFoundError("Department not found", ErrCodeDepartmentNotFound)
	ErrEmployeeNotFound     = NewNotFoundError("Employee not found", ErrCodeEmployeeNotFound)
	ErrNotificationNotFound = NewNotFoundError("Notification not found", ErrCodeNotificationNotFound)

	ErrOTPDispatchFailed = NewDependencyError("Failed to send OTP. Please try again later", ErrCodeOTPDispatchFailed, nil)
	ErrAuditLogFailed    = NewDependencyError("Action completed but could not be recorded in the audit log", ErrCodeAuditLogFailed, nil)
)

// IsAppError unwraps err looking for an *AppError.
func IsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// NewMissingFieldsError lists every required field absent from a request.
func NewMissingFieldsError(fields []string) *AppError {
	details := ValidationErrors{Errors: make([]ValidationError, 0, len(fields))}
	for _, f := range fields {
		details.Errors = append(details.Errors, ValidationError{
			Field:   f,
			Message: fmt.Sprintf("%s is required", f),
			Code:    string(ErrCodeMissingFields),
		})
	}
	return &AppError{
		Type:       ErrorTypeValidation,
		Code:       ErrCodeMissingFields,
		Message:    fmt.Sprintf("Missing required fields: %s", strings.Join(fields, ", ")),
		Details:    details,
		StatusCode: http.StatusBadRequest,
	}
}

func (e *AppError) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    ErrorType   `json:"type"`
		Code    ErrorCode   `json:"code"`
		Message string      `json:"message"`
		Details interface{} `json:"details,omitempty"`
	}{
		Type:    e.Type,
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
	})
}
