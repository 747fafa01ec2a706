package notification

import "time"

type Notification struct {
	ID             string    `gorm:"primaryKey;column:id"`
	RecipientID    string    `gorm:"column:recipient_id;not null;index:idx_notifications_recipient"`
	RecipientModel string    `gorm:"column:recipient_model;not null;index:idx_notifications_recipient"`
	Type           string    `gorm:"column:type;not null"`
	Title          string    `gorm:"column:title;not null"`
	Message        string    `gorm:"column:message;not null"`
	IsRead         bool      `gorm:"column:is_read;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;index"`
}
