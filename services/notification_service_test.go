package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskboard-api/models"
)

func seedInbox(t *testing.T, store *memNotificationStore, recipientID uint, n int) []uint {
	t.Helper()
	var ids []uint
	for i := 0; i < n; i++ {
		row := &models.Notification{
			RecipientID: recipientID,
			Type:        models.KindTaskAssigned,
			Status:      models.NotificationUnread,
			Title:       "assigned",
			CreateAt:    time.Now(),
		}
		if err := store.Create(context.Background(), row); err != nil {
			t.Fatalf("seed: %v", err)
		}
		ids = append(ids, row.NotificationID)
	}
	return ids
}

func TestMarkReadRequiresOwnership(t *testing.T) {
	store := newMemNotificationStore()
	svc := NewNotificationService(store)
	ids := seedInbox(t, store, 2, 1)

	if _, err := svc.MarkRead(context.Background(), 3, ids[0]); !errors.Is(err, ErrNotificationForbidden) {
		t.Fatalf("MarkRead by other user error = %v, want ErrNotificationForbidden", err)
	}
	row, _ := store.FindByID(context.Background(), ids[0])
	if row.Status != models.NotificationUnread {
		t.Fatal("forbidden MarkRead changed status")
	}

	n, err := svc.MarkRead(context.Background(), 2, ids[0])
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if !n.IsRead() || n.ReadAt == nil {
		t.Fatalf("MarkRead() = %+v", n)
	}
	count, _ := svc.UnreadCount(context.Background(), 2)
	if count != 0 {
		t.Fatalf("unread = %d, want 0", count)
	}

	if _, err := svc.MarkRead(context.Background(), 2, 999); !errors.Is(err, ErrNotificationNotFound) {
		t.Fatalf("missing notification error = %v", err)
	}
}

func TestMarkAllReadOnlyTouchesCaller(t *testing.T) {
	store := newMemNotificationStore()
	svc := NewNotificationService(store)
	seedInbox(t, store, 2, 3)
	seedInbox(t, store, 3, 2)

	updated, err := svc.MarkAllRead(context.Background(), 2)
	if err != nil || updated != 3 {
		t.Fatalf("MarkAllRead() = %d, %v", updated, err)
	}
	if c, _ := svc.UnreadCount(context.Background(), 3); c != 2 {
		t.Fatalf("other user's unread = %d, want 2", c)
	}
	if again, _ := svc.MarkAllRead(context.Background(), 2); again != 0 {
		t.Fatalf("second MarkAllRead() = %d, want 0", again)
	}
}

func TestDeleteRequiresOwnership(t *testing.T) {
	store := newMemNotificationStore()
	svc := NewNotificationService(store)
	ids := seedInbox(t, store, 2, 2)

	if err := svc.Delete(context.Background(), 3, ids[0]); !errors.Is(err, ErrNotificationForbidden) {
		t.Fatalf("Delete by other user error = %v", err)
	}
	if err := svc.Delete(context.Background(), 2, ids[0]); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	items, _ := svc.List(context.Background(), 2, ListOptions{})
	if len(items) != 1 || items[0].NotificationID != ids[1] {
		t.Fatalf("List() after delete = %+v", items)
	}
}

func TestListNewestFirstWithUnreadFilter(t *testing.T) {
	store := newMemNotificationStore()
	svc := NewNotificationService(store)
	ids := seedInbox(t, store, 2, 3)
	if _, err := svc.MarkRead(context.Background(), 2, ids[2]); err != nil {
		t.Fatal(err)
	}

	items, _ := svc.List(context.Background(), 2, ListOptions{})
	if len(items) != 3 || items[0].NotificationID != ids[2] {
		t.Fatalf("List() = %+v", items)
	}
	unread, _ := svc.List(context.Background(), 2, ListOptions{UnreadOnly: true, Limit: 1})
	if len(unread) != 1 || unread[0].NotificationID != ids[1] {
		t.Fatalf("List(unread, limit 1) = %+v", unread)
	}
}
