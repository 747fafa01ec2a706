// Package auth implements the account lifecycle and the login flow once,
// generically over the account kinds that can authenticate.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/core/events"
)

// Policy is what differs between account kinds.
type Policy struct {
	Kind account.Kind
	// RequiredFields must be present on a login request.
	RequiredFields []string
	// LookupFields are the columns a login may be matched on. Every supplied
	// one must match.
	LookupFields []string
	// ResetLookupField is the column a password reset request is matched on.
	ResetLookupField string
	// VerifyWithOTP sends a code at signup instead of a verification link.
	VerifyWithOTP bool
	VerifyPath    string
	ResetPath     string
}

type Settings struct {
	SessionTTL           time.Duration
	RememberTTL          time.Duration
	VerificationTokenTTL time.Duration
	ResetTokenTTL        time.Duration
	OTPTTL               time.Duration
	// PublicURL is the API base used in verification links.
	PublicURL string
	// FrontendURL is the base used in password reset links.
	FrontendURL string
	Issuer      string
}

type Dependencies[T account.Account] struct {
	Repository Repository[T]
	Hasher     account.Hasher
	Sessions   SessionIssuer
	Notifier   Notifier
	SMS        SMSGateway
	Events     events.Publisher
	Logger     *slog.Logger
}

type Flow[T account.Account] struct {
	policy   Policy
	settings Settings
	repo     Repository[T]
	hasher   account.Hasher
	sessions SessionIssuer
	notifier Notifier
	sms      SMSGateway
	events   events.Publisher
	logger   *slog.Logger
	now      func() time.Time
}

func NewFlow[T account.Account](policy Policy, settings Settings, deps Dependencies[T]) *Flow[T] {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow[T]{
		policy:   policy,
		settings: settings,
		repo:     deps.Repository,
		hasher:   deps.Hasher,
		sessions: deps.Sessions,
		notifier: deps.Notifier,
		sms:      deps.SMS,
		events:   deps.Events,
		logger:   logger.With("account_kind", string(policy.Kind)),
		now:      time.Now,
	}
}

// WithClock replaces the time source. Tests only.
func (f *Flow[T]) WithClock(now func() time.Time) *Flow[T] {
	f.now = now
	return f
}

func (f *Flow[T]) Policy() Policy {
	return f.policy
}

// SessionResult is returned by every operation that logs the account in.
type SessionResult[T account.Account] struct {
	Account   T
	Token     string
	ExpiresAt time.Time
}

func (f *Flow[T]) issue(acc T, ttl time.Duration) (*SessionResult[T], error) {
	signed, err := f.sessions.Issue(acc.AccountID(), ttl)
	if err != nil {
		return nil, errors.NewInternalError("Failed to issue session token", err)
	}
	return &SessionResult[T]{Account: acc, Token: signed, ExpiresAt: f.now().Add(ttl)}, nil
}

func (f *Flow[T]) save(ctx context.Context, acc T) error {
	if err := f.repo.SaveCredentials(ctx, acc); err != nil {
		return errors.NewInternalError("Failed to save account", err)
	}
	return nil
}

func (f *Flow[T]) publish(ctx context.Context, eventType string, acc T) {
	if f.events == nil {
		return
	}
	event := events.NewAccountEvent(eventType, acc.AccountID(), string(acc.AccountKind()), acc.DisplayName())
	if err := f.events.Publish(ctx, event); err != nil {
		f.logger.Warn("failed to publish account event", "event_type", eventType, "error", err)
	}
}

func (f *Flow[T]) verificationURL(id, plain string) string {
	return linkWithToken(f.settings.PublicURL, f.policy.VerifyPath, id, plain)
}

func (f *Flow[T]) resetURL(id, plain string) string {
	return linkWithToken(f.settings.FrontendURL, f.policy.ResetPath, id, plain)
}

func linkWithToken(base, path, id, plain string) string {
	q := url.Values{}
	q.Set("id", id)
	q.Set("token", plain)
	return fmt.Sprintf("%s%s?%s", base, path, q.Encode())
}
