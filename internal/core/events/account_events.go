package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeAccountRegistered    = "account.registered"
	EventTypeAccountLoggedIn      = "account.logged_in"
	EventTypeAccountOTPVerified   = "account.otp_verified"
	EventTypeAccountPasswordReset = "account.password_reset"
	EventTypeNotificationCreated  = "notification.created"
)

// AccountEvent is raised by the auth flows for a single account.
type AccountEvent struct {
	BaseEvent
	AccountID   string `json:"account_id"`
	AccountKind string `json:"account_kind"`
	DisplayName string `json:"display_name"`
}

func NewAccountEvent(eventType, accountID, accountKind, displayName string) *AccountEvent {
	return &AccountEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      eventType,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"account_id":   accountID,
				"account_kind": accountKind,
			},
		},
		AccountID:   accountID,
		AccountKind: accountKind,
		DisplayName: displayName,
	}
}

// NotificationCreatedEvent carries a stored notification to realtime
// subscribers.
type NotificationCreatedEvent struct {
	BaseEvent
	NotificationID string `json:"notification_id"`
	RecipientID    string `json:"recipient_id"`
	RecipientModel string `json:"recipient_model"`
	Kind           string `json:"kind"`
	Title          string `json:"title"`
	Message        string `json:"message"`
}

func NewNotificationCreatedEvent(notificationID, recipientID, recipientModel, kind, title, message string) *NotificationCreatedEvent {
	return &NotificationCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeNotificationCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"notification_id": notificationID,
				"recipient_id":    recipientID,
				"recipient_model": recipientModel,
			},
		},
		NotificationID: notificationID,
		RecipientID:    recipientID,
		RecipientModel: recipientModel,
		Kind:           kind,
		Title:          title,
		Message:        message,
	}
}
