// Package notification stores in-app notifications for companies and
// employees and fans new ones out to realtime subscribers.
package notification

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/training-identity/internal/core/account"
	notificationDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/notification"
	"github.com/google/uuid"
)

type Type string

const (
	TypeRegistration     Type = "registration"
	TypePasswordReset    Type = "passwordReset"
	TypeCourseAssignment Type = "courseAssignment"
	TypeProgressReport   Type = "progressReport"
	TypeCustom           Type = "custom"
	TypeLogin            Type = "login"
	TypeOTPVerified      Type = "otp_verified"
)

func (t Type) Valid() bool {
	switch t {
	case TypeRegistration, TypePasswordReset, TypeCourseAssignment, TypeProgressReport, TypeCustom, TypeLogin, TypeOTPVerified:
		return true
	}
	return false
}

var ErrNotFound = errors.New("notification not found")

type Notification struct {
	ID             string       `json:"id"`
	RecipientID    string       `json:"recipient_id"`
	RecipientModel account.Kind `json:"recipient_model"`
	Type           Type         `json:"type"`
	Title          string       `json:"title"`
	Message        string       `json:"message"`
	IsRead         bool         `json:"is_read"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Input is what a producer hands to the Sink.
type Input struct {
	RecipientID    string
	RecipientModel account.Kind
	Type           Type
	Title          string
	Message        string
}

// Sink accepts notifications. Callers treat failures as best effort.
type Sink interface {
	Send(ctx context.Context, in Input) (*Notification, error)
}

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListUnread(ctx context.Context, recipientID string, model account.Kind, offset, limit int) ([]*Notification, int64, error)
	MarkRead(ctx context.Context, id, recipientID string) (*Notification, error)
	MarkAllRead(ctx context.Context, recipientID string, model account.Kind) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

func newNotification(in Input, now time.Time) *Notification {
	return &Notification{
		ID:             uuid.NewString(),
		RecipientID:    in.RecipientID,
		RecipientModel: in.RecipientModel,
		Type:           in.Type,
		Title:          in.Title,
		Message:        in.Message,
		CreatedAt:      now,
	}
}

func ToDataModel(n *Notification) *notificationDatamodel.Notification {
	return &notificationDatamodel.Notification{
		ID:             n.ID,
		RecipientID:    n.RecipientID,
		RecipientModel: string(n.RecipientModel),
		Type:           string(n.Type),
		Title:          n.Title,
		Message:        n.Message,
		IsRead:         n.IsRead,
		CreatedAt:      n.CreatedAt,
	}
}

func FromDataModel(n *notificationDatamodel.Notification) *Notification {
	return &Notification{
		ID:             n.ID,
		RecipientID:    n.RecipientID,
		RecipientModel: account.Kind(n.RecipientModel),
		Type:           Type(n.Type),
		Title:          n.Title,
		Message:        n.Message,
		IsRead:         n.IsRead,
		CreatedAt:      n.CreatedAt,
	}
}
