package notification

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"time"

	errors "github.com/frahmantamala/training-identity/internal"
	"github.com/frahmantamala/training-identity/internal/core/account"
	"github.com/frahmantamala/training-identity/internal/core/events"
	"github.com/frahmantamala/training-identity/internal/transport"
)

// DefaultRetention is how long notifications are kept.
const DefaultRetention = 30 * 24 * time.Hour

type Page struct {
	Notifications []*Notification `json:"notifications"`
	Total         int64           `json:"total"`
	Page          int             `json:"page"`
	Limit         int             `json:"limit"`
	TotalPages    int             `json:"total_pages"`
}

type Service struct {
	repo   Repository
	events events.Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, publisher events.Publisher, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		events: publisher,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the time source in tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Send stores the notification and announces it to realtime subscribers.
func (s *Service) Send(ctx context.Context, in Input) (*Notification, error) {
	if in.RecipientID == "" || !in.Type.Valid() || in.Title == "" {
		return nil, errors.NewValidationError("Notification needs a recipient, a known type and a title", errors.ErrCodeValidationFailed)
	}

	n := newNotification(in, s.now())
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("failed to store notification", "error", err, "recipient_id", in.RecipientID, "type", in.Type)
		return nil, errors.NewInternalError("Failed to store notification", err)
	}

	if s.events != nil {
		evt := events.NewNotificationCreatedEvent(n.ID, n.RecipientID, string(n.RecipientModel), string(n.Type), n.Title, n.Message)
		if err := s.events.Publish(ctx, evt); err != nil {
			s.logger.Warn("failed to publish notification event", "error", err, "notification_id", n.ID)
		}
	}
	return n, nil
}

func (s *Service) ListUnread(ctx context.Context, recipientID string, model account.Kind, page, limit int) (*Page, error) {
	items, total, err := s.repo.ListUnread(ctx, recipientID, model, (page-1)*limit, limit)
	if err != nil {
		return nil, errors.NewInternalError("Failed to load notifications", err)
	}
	return &Page{Notifications: items, Total: total, Page: page, Limit: limit, TotalPages: transport.TotalPages(total, limit)}, nil
}

func (s *Service) MarkRead(ctx context.Context, id, recipientID string) (*Notification, error) {
	n, err := s.repo.MarkRead(ctx, id, recipientID)
	if err != nil {
		if stdErrors.Is(err, ErrNotFound) {
			return nil, errors.ErrNotificationNotFound
		}
		return nil, errors.NewInternalError("Failed to update notification", err)
	}
	return n, nil
}

func (s *Service) MarkAllRead(ctx context.Context, recipientID string, model account.Kind) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, recipientID, model)
	if err != nil {
		return 0, errors.NewInternalError("Failed to update notifications", err)
	}
	return count, nil
}

// Cleanup deletes notifications created before now minus retention.
func (s *Service) Cleanup(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		retention = DefaultRetention
	}
	cutoff := s.now().Add(-retention)
	deleted, err := s.repo.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	s.logger.Info("old notifications deleted", "count", deleted, "cutoff", cutoff)
	return deleted, nil
}

// RunCleanup deletes expired notifications once immediately and then on
// every tick until ctx is done. Failures are logged and retried on the
// next tick.
func (s *Service) RunCleanup(ctx context.Context, every, retention time.Duration) {
	if every <= 0 {
		every = time.Hour
	}
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if _, err := s.Cleanup(ctx, retention); err != nil {
			s.logger.Error("notification cleanup failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
