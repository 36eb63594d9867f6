package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"taskboard-api/models"
)

// DigestSummary reports one scheduler pass.
type DigestSummary struct {
	BatchID              string `json:"batch_id"`
	UsersConsidered      int    `json:"users_considered"`
	DigestsSent          int    `json:"digests_sent"`
	NotificationsEmailed int    `json:"notifications_emailed"`
	Failures             int    `json:"failures"`
	LockedOut            int    `json:"locked_out"`
	NotDue               int    `json:"not_due"`
}

// DueUser is a recipient whose digest would go out on the next pass.
type DueUser struct {
	UserID  uint `json:"user_id"`
	Pending int  `json:"pending"`
}

// DigestScheduler batches DIGEST notifications into one email per user and
// period. A failed send leaves both the rows and lastDigestAt untouched so the
// same batch is retried on the next pass.
type DigestScheduler struct {
	notifications NotificationStore
	preferences   PreferenceStore
	users         UserDirectory
	email         *EmailChannel
	locker        Locker
	now           func() time.Time
}

func NewDigestScheduler(notifications NotificationStore, preferences PreferenceStore, users UserDirectory, email *EmailChannel, locker Locker) *DigestScheduler {
	return &DigestScheduler{
		notifications: notifications,
		preferences:   preferences,
		users:         users,
		email:         email,
		locker:        locker,
		now:           time.Now,
	}
}

type digestState int

const (
	digestNotDue digestState = iota
	digestDisabled
	digestDue
)

func digestStateFor(pref models.NotificationPreference, now time.Time) digestState {
	if !pref.EmailEnabled || !pref.EmailDigestEnabled {
		return digestDisabled
	}
	if pref.LastDigestAt != nil && now.Sub(*pref.LastDigestAt) < pref.DigestInterval() {
		return digestNotDue
	}
	return digestDue
}

func (s *DigestScheduler) loadPreference(ctx context.Context, userID uint) (models.NotificationPreference, error) {
	pref, found, err := s.preferences.Find(ctx, userID)
	if err != nil {
		return models.NotificationPreference{}, err
	}
	return WithDefaults(userID, pref, found), nil
}

// DueUsers lists who would receive a digest now without sending anything.
func (s *DigestScheduler) DueUsers(ctx context.Context) ([]DueUser, error) {
	ids, err := s.notifications.PendingDigestRecipients(ctx)
	if err != nil {
		return nil, err
	}
	now := s.now()
	due := make([]DueUser, 0, len(ids))
	for _, id := range ids {
		pref, err := s.loadPreference(ctx, id)
		if err != nil {
			return nil, err
		}
		if digestStateFor(pref, now) != digestDue {
			continue
		}
		pending, err := s.notifications.PendingDigest(ctx, id)
		if err != nil {
			return nil, err
		}
		due = append(due, DueUser{UserID: id, Pending: len(pending)})
	}
	return due, nil
}

// RunOnce performs one pass over every user with pending digest rows.
func (s *DigestScheduler) RunOnce(ctx context.Context) (DigestSummary, error) {
	summary := DigestSummary{BatchID: uuid.NewString()}
	log := logrus.WithField("batch_id", summary.BatchID)

	ids, err := s.notifications.PendingDigestRecipients(ctx)
	if err != nil {
		return summary, fmt.Errorf("list digest recipients: %w", err)
	}

	for _, userID := range ids {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		summary.UsersConsidered++

		sent, err := s.runForUser(ctx, userID)
		switch {
		case errors.Is(err, errDigestLocked):
			summary.LockedOut++
		case errors.Is(err, errDigestNotDue):
			summary.NotDue++
		case err != nil:
			summary.Failures++
			log.WithField("user_id", userID).Errorf("digest failed: %v", err)
		case sent > 0:
			summary.DigestsSent++
			summary.NotificationsEmailed += sent
		}
	}

	log.WithFields(logrus.Fields{
		"users":   summary.UsersConsidered,
		"sent":    summary.DigestsSent,
		"emailed": summary.NotificationsEmailed,
		"failed":  summary.Failures,
	}).Info("digest pass finished")
	return summary, nil
}

var (
	errDigestLocked = errors.New("digest already running for user")
	errDigestNotDue = errors.New("digest not due")
)

func (s *DigestScheduler) runForUser(ctx context.Context, userID uint) (int, error) {
	if s.locker != nil {
		release, ok, err := s.locker.TryLock(ctx, digestLockName(userID))
		if err != nil {
			return 0, fmt.Errorf("lock: %w", err)
		}
		if !ok {
			return 0, errDigestLocked
		}
		defer release()
	}

	pref, err := s.loadPreference(ctx, userID)
	if err != nil {
		return 0, err
	}
	now := s.now()
	if digestStateFor(pref, now) != digestDue {
		return 0, errDigestNotDue
	}

	items, err := s.notifications.PendingDigest(ctx, userID)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	res := s.email.SendDigest(ctx, user, items)
	if res.Failed() {
		return 0, res.Err
	}
	if !res.Delivered {
		return 0, nil
	}

	ids := make([]uint, 0, len(items))
	for _, n := range items {
		ids = append(ids, n.NotificationID)
	}
	if err := s.notifications.MarkEmailed(ctx, ids...); err != nil {
		return 0, err
	}
	pref.LastDigestAt = &now
	if err := s.preferences.Save(ctx, &pref); err != nil {
		return len(ids), fmt.Errorf("advance last digest: %w", err)
	}
	return len(ids), nil
}

// Start runs RunOnce every interval until ctx is done.
func (s *DigestScheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logrus.WithField("interval", interval.String()).Info("digest scheduler started")
	for {
		select {
		case <-ctx.Done():
			logrus.Info("digest scheduler stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logrus.Errorf("digest pass failed: %v", err)
			}
		}
	}
}
