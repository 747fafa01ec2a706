package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/training-identity/internal/core/account"
	notificationDatamodel "github.com/frahmantamala/training-identity/internal/core/datamodel/notification"
	"github.com/frahmantamala/training-identity/internal/notification"
	"gorm.io/gorm"
)

type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) notification.Repository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *notification.Notification) error {
	return r.db.WithContext(ctx).Create(notification.ToDataModel(n)).Error
}

// ListUnread returns unread notifications newest first plus the unread
// total.
func (r *NotificationRepository) ListUnread(ctx context.Context, recipientID string, model account.Kind, offset, limit int) ([]*notification.Notification, int64, error) {
	q := r.db.WithContext(ctx).Model(&notificationDatamodel.Notification{}).
		Where("recipient_id = ? AND recipient_model = ? AND is_read = ?", recipientID, string(model), false)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []notificationDatamodel.Notification
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*notification.Notification, 0, len(rows))
	for i := range rows {
		out = append(out, notification.FromDataModel(&rows[i]))
	}
	return out, total, nil
}

// MarkRead only touches notifications owned by recipientID.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipientID string) (*notification.Notification, error) {
	var row notificationDatamodel.Notification
	err := r.db.WithContext(ctx).Where("id = ? AND recipient_id = ?", id, recipientID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notification.ErrNotFound
		}
		return nil, err
	}

	if !row.IsRead {
		if err := r.db.WithContext(ctx).Model(&row).Update("is_read", true).Error; err != nil {
			return nil, err
		}
		row.IsRead = true
	}
	return notification.FromDataModel(&row), nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID string, model account.Kind) (int64, error) {
	res := r.db.WithContext(ctx).Model(&notificationDatamodel.Notification{}).
		Where("recipient_id = ? AND recipient_model = ? AND is_read = ?", recipientID, string(model), false).
		Update("is_read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&notificationDatamodel.Notification{})
	return res.RowsAffected, res.Error
}
