package auth

import (
	"context"
	"time"

	"github.com/frahmantamala/training-identity/internal/core/account"
)

// Repository is the document store view the flows need. FindOne matches
// every key in filter; keys are column names chosen by the flow policy,
// never by the caller. Implementations return account.ErrNotFound and
// account.ErrDuplicate.
type Repository[T account.Account] interface {
	FindByID(ctx context.Context, id string) (T, error)
	FindOne(ctx context.Context, filter map[string]string) (T, error)
	Create(ctx context.Context, acc T) error
	// SaveCredentials writes the credential state and nothing else.
	SaveCredentials(ctx context.Context, acc T) error
}

type VerificationMessage struct {
	To   string `json:"to"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

type OTPMessage struct {
	To   string `json:"to"`
	Name string `json:"name"`
	Code string `json:"code"`
}

type PasswordResetMessage struct {
	To   string `json:"to"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Notifier delivers account messages. Errors are logged by the flows and
// never undo the state change that triggered the message.
type Notifier interface {
	SendVerification(ctx context.Context, msg VerificationMessage) error
	SendOTP(ctx context.Context, msg OTPMessage) error
	SendPasswordReset(ctx context.Context, msg PasswordResetMessage) error
}

// SMSGateway asks the provider to text a code and returns it.
type SMSGateway interface {
	RequestCode(ctx context.Context, phone string) (string, error)
}

type SessionIssuer interface {
	Issue(accountID string, ttl time.Duration) (string, error)
}
