package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"taskboard-api/config"
	"taskboard-api/models"
)

type ListOptions struct {
	Limit      int
	Offset     int
	UnreadOnly bool
}

// normalize clamps limit to 1..100 (default 20) and offset to >= 0.
func (o ListOptions) normalize() ListOptions {
	if o.Limit <= 0 || o.Limit > 100 {
		o.Limit = 20
	}
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}

// NotificationStore persists notifications. The table doubles as the digest
// queue: rows with email_mode = DIGEST and emailed = false.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	FindByID(ctx context.Context, id uint) (*models.Notification, error)
	ListByRecipient(ctx context.Context, recipientID uint, opts ListOptions) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipientID uint) (int64, error)
	MarkRead(ctx context.Context, id uint, at time.Time) error
	MarkAllRead(ctx context.Context, recipientID uint, at time.Time) (int64, error)
	Delete(ctx context.Context, id uint) error
	MarkEmailed(ctx context.Context, ids ...uint) error
	PendingDigestRecipients(ctx context.Context) ([]uint, error)
	PendingDigest(ctx context.Context, recipientID uint) ([]models.Notification, error)
}

type GormNotificationStore struct {
	db *gorm.DB
}

func NewGormNotificationStore(db *gorm.DB) *GormNotificationStore {
	if db == nil {
		db = config.DB
	}
	return &GormNotificationStore{db: db}
}

func (s *GormNotificationStore) Create(ctx context.Context, n *models.Notification) error {
	return s.db.WithContext(ctx).Create(n).Error
}

func (s *GormNotificationStore) FindByID(ctx context.Context, id uint) (*models.Notification, error) {
	var n models.Notification
	if err := s.db.WithContext(ctx).First(&n, "notification_id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotificationNotFound
		}
		return nil, err
	}
	return &n, nil
}

func (s *GormNotificationStore) ListByRecipient(ctx context.Context, recipientID uint, opts ListOptions) ([]models.Notification, error) {
	opts = opts.normalize()
	q := s.db.WithContext(ctx).Model(&models.Notification{}).Where("recipient_id = ?", recipientID)
	if opts.UnreadOnly {
		q = q.Where("status = ?", models.NotificationUnread)
	}

	var items []models.Notification
	if err := q.Order("create_at DESC, notification_id DESC").
		Limit(opts.Limit).
		Offset(opts.Offset).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *GormNotificationStore) CountUnread(ctx context.Context, recipientID uint) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND status = ?", recipientID, models.NotificationUnread).
		Count(&n).Error
	return n, err
}

func (s *GormNotificationStore) MarkRead(ctx context.Context, id uint, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("notification_id = ?", id).
		Updates(map[string]interface{}{
			"status":  models.NotificationRead,
			"read_at": at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *GormNotificationStore) MarkAllRead(ctx context.Context, recipientID uint, at time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("recipient_id = ? AND status = ?", recipientID, models.NotificationUnread).
		Updates(map[string]interface{}{
			"status":  models.NotificationRead,
			"read_at": at,
		})
	return res.RowsAffected, res.Error
}

func (s *GormNotificationStore) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Notification{}, "notification_id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *GormNotificationStore) MarkEmailed(ctx context.Context, ids ...uint) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("notification_id IN ?", ids).
		Update("emailed", true).Error; err != nil {
		return fmt.Errorf("mark %d notifications emailed: %w", len(ids), err)
	}
	return nil
}

func (s *GormNotificationStore) PendingDigestRecipients(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := s.db.WithContext(ctx).Model(&models.Notification{}).
		Where("email_mode = ? AND emailed = ?", models.EmailDigest, false).
		Distinct("recipient_id").
		Order("recipient_id ASC").
		Pluck("recipient_id", &ids).Error
	return ids, err
}

func (s *GormNotificationStore) PendingDigest(ctx context.Context, recipientID uint) ([]models.Notification, error) {
	var items []models.Notification
	err := s.db.WithContext(ctx).
		Where("recipient_id = ? AND email_mode = ? AND emailed = ?", recipientID, models.EmailDigest, false).
		Order("create_at ASC, notification_id ASC").
		Find(&items).Error
	return items, err
}
