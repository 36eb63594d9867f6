package services

import (
	"context"
	"time"

	"taskboard-api/models"
)

// NotificationService is the read/update surface behind the inbox endpoints.
// Every call is scoped to the caller; touching someone else's notification is
// ErrNotificationForbidden, not ErrNotificationNotFound.
type NotificationService struct {
	store NotificationStore
	now   func() time.Time
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store, now: time.Now}
}

func (s *NotificationService) List(ctx context.Context, userID uint, opts ListOptions) ([]models.Notification, error) {
	return s.store.ListByRecipient(ctx, userID, opts)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID uint) (int64, error) {
	return s.store.CountUnread(ctx, userID)
}

func (s *NotificationService) owned(ctx context.Context, userID, notificationID uint) (*models.Notification, error) {
	n, err := s.store.FindByID(ctx, notificationID)
	if err != nil {
		return nil, err
	}
	if n.RecipientID != userID {
		return nil, ErrNotificationForbidden
	}
	return n, nil
}

func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uint) (*models.Notification, error) {
	n, err := s.owned(ctx, userID, notificationID)
	if err != nil {
		return nil, err
	}
	if n.IsRead() {
		return n, nil
	}
	at := s.now()
	if err := s.store.MarkRead(ctx, notificationID, at); err != nil {
		return nil, err
	}
	n.Status = models.NotificationRead
	n.ReadAt = &at
	return n, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	return s.store.MarkAllRead(ctx, userID, s.now())
}

func (s *NotificationService) Delete(ctx context.Context, userID, notificationID uint) error {
	if _, err := s.owned(ctx, userID, notificationID); err != nil {
		return err
	}
	return s.store.Delete(ctx, notificationID)
}
