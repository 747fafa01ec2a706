package notification

import (
	"context"
	"fmt"

	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/core/events"
)

// Subscriber turns account events into notifications for the account that
// raised them.
type Subscriber struct {
	sink Sink
}

func NewSubscriber(sink Sink) *Subscriber {
	return &Subscriber{sink: sink}
}

// Register subscribes to every account event the bus carries.
func (s *Subscriber) Register(bus *events.EventBus) {
	for _, eventType := range []string{
		events.EventTypeAccountRegistered,
		events.EventTypeAccountLoggedIn,
		events.EventTypeAccountOTPVerified,
		events.EventTypeAccountPasswordReset,
	} {
		bus.Subscribe(eventType, s.Handle)
	}
}

func (s *Subscriber) Handle(ctx context.Context, event events.Event) error {
	evt, ok := event.(*events.AccountEvent)
	if !ok {
		return fmt.Errorf("unexpected event payload %T for %s", event, event.EventType())
	}

	in, ok := inputFor(evt)
	if !ok {
		return nil
	}
	_, err := s.sink.Send(ctx, in)
	return err
}

func inputFor(evt *events.AccountEvent) (Input, bool) {
	in := Input{
		RecipientID:    evt.AccountID,
		RecipientModel: account.Kind(evt.AccountKind),
	}

	switch evt.EventType() {
	case events.EventTypeAccountRegistered:
		in.Type = TypeRegistration
		in.Title = "Welcome"
		in.Message = fmt.Sprintf("Welcome %s, your account has been created. Please verify it to continue.", evt.DisplayName)
	case events.EventTypeAccountLoggedIn:
		in.Type = TypeLogin
		in.Title = "New login"
		in.Message = "A new login to your account was recorded."
	case events.EventTypeAccountOTPVerified:
		in.Type = TypeOTPVerified
		in.Title = "OTP verified"
		in.Message = "Your one-time code was verified and a session was started."
	case events.EventTypeAccountPasswordReset:
		in.Type = TypePasswordReset
		in.Title = "Password changed"
		in.Message = "Your password was reset. If this was not you, contact support."
	default:
		return Input{}, false
	}
	return in, true
}
