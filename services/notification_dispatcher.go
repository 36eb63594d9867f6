package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"taskboard-api/models"
)

// DispatchRequest is one fan-out of an already resolved event.
type DispatchRequest struct {
	Kind        models.EventKind
	ReferenceID uint
	Recipients  []uint
	Title       string
	Message     string
	Link        string
	SenderID    *uint
	// Priority defaults to Kind.Priority().
	Priority models.Priority
}

// DispatchReport counts what a fan-out did. Channel failures are absorbed and
// only show up here and in the log.
type DispatchReport struct {
	Recipients      int    `json:"recipients"`
	Created         int    `json:"created"`
	Pushed          int    `json:"pushed"`
	Emailed         int    `json:"emailed"`
	Digested        int    `json:"digested"`
	Failed          int    `json:"failed"`
	ChannelFailures int    `json:"channel_failures"`
	Skipped         bool   `json:"skipped"`
	NotificationIDs []uint `json:"notification_ids,omitempty"`
}

// DispatcherDeps wires a NotificationDispatcher. Push and Email may be nil,
// which disables that channel.
type DispatcherDeps struct {
	Notifications NotificationStore
	Preferences   PreferenceStore
	Users         UserDirectory
	Projects      ProjectMembership
	Tasks         TaskGraph
	Activity      *ActivityLog
	Push          *PushChannel
	Email         *EmailChannel
}

// NotificationDispatcher resolves, records and delivers events. It runs in
// the caller's goroutine; only per-channel calls are time-bounded.
type NotificationDispatcher struct {
	deps     DispatcherDeps
	resolver *RecipientResolver
	gate     *PreferenceGate
	now      func() time.Time
}

func NewNotificationDispatcher(deps DispatcherDeps) *NotificationDispatcher {
	return &NotificationDispatcher{
		deps:     deps,
		resolver: NewRecipientResolver(deps.Users, deps.Projects, deps.Tasks),
		gate:     NewPreferenceGate(deps.Preferences),
		now:      time.Now,
	}
}

// WithTx returns a dispatcher whose reads and writes go through tx, so the
// notification rows and the activity record commit with the caller's business
// change. Activity mirror messages are held until flushActivity.
func (d *NotificationDispatcher) WithTx(tx *gorm.DB) *NotificationDispatcher {
	deps := d.deps
	dir := NewGormDirectory(tx)
	deps.Notifications = NewGormNotificationStore(tx)
	deps.Preferences = NewGormPreferenceStore(tx)
	deps.Users = dir
	deps.Projects = dir
	deps.Tasks = dir
	if deps.Activity != nil {
		deps.Activity = deps.Activity.inTx(NewSQLActivityStore(tx.Statement.ConnPool))
	}

	clone := NewNotificationDispatcher(deps)
	clone.now = d.now
	return clone
}

// flushActivity publishes activity mirror messages held by a WithTx dispatcher.
func (d *NotificationDispatcher) flushActivity(ctx context.Context) {
	if d.deps.Activity != nil {
		d.deps.Activity.flush(ctx)
	}
}

func (d *NotificationDispatcher) Resolve(ctx context.Context, ev Event) ([]uint, error) {
	return d.resolver.Resolve(ctx, ev)
}

// Publish is the single entry point for business code. It returns an error
// only when recipients cannot be resolved or the activity log cannot be read
// or written; delivery problems never surface here.
func (d *NotificationDispatcher) Publish(ctx context.Context, ev Event) (DispatchReport, error) {
	if !ev.Kind.Valid() {
		return DispatchReport{}, fmt.Errorf("%q: %w", ev.Kind, ErrUnknownEventKind)
	}
	if ev.Subject == nil {
		return DispatchReport{}, fmt.Errorf("%s without subject: %w", ev.Kind, ErrSubjectMismatch)
	}
	ctx = persistentContext(ctx)

	entityType, entityID := ev.Subject.EntityType(), ev.Subject.EntityID()
	log := logrus.WithFields(logrus.Fields{
		"kind":        ev.Kind,
		"entity_type": entityType,
		"entity_id":   entityID,
	})

	if ev.Activity != nil && ev.Activity.Dedup && d.deps.Activity != nil {
		exists, err := d.deps.Activity.ExistsForDedup(ctx, ev.ActorID, entityType, entityID, ev.Activity.Action)
		if err != nil {
			return DispatchReport{}, err
		}
		if exists {
			log.Info("event already recorded, skipping")
			return DispatchReport{Skipped: true}, nil
		}
	}

	recipients, err := d.resolver.Resolve(ctx, ev)
	if err != nil {
		return DispatchReport{}, err
	}

	if ev.Activity != nil && d.deps.Activity != nil {
		if err := d.deps.Activity.Append(ctx, entityType, entityID, ev.Activity.Action, ev.ActorID, ev.Activity.Payload); err != nil {
			return DispatchReport{}, err
		}
	}

	return d.Dispatch(ctx, DispatchRequest{
		Kind:        ev.Kind,
		ReferenceID: entityID,
		Recipients:  recipients,
		Title:       ev.Title,
		Message:     ev.Message,
		Link:        ev.Link,
		SenderID:    ev.ActorID,
		Priority:    ev.Kind.Priority(),
	}), nil
}

// Dispatch writes one notification per recipient and hands it to the channels
// the recipient's preferences allow. An empty recipient list does nothing.
func (d *NotificationDispatcher) Dispatch(ctx context.Context, req DispatchRequest) DispatchReport {
	report := DispatchReport{Recipients: len(req.Recipients)}
	if len(req.Recipients) == 0 {
		return report
	}
	ctx = persistentContext(ctx)

	priority := req.Priority
	if priority == "" {
		priority = req.Kind.Priority()
	}

	var sender *models.User
	if req.SenderID != nil {
		u, err := d.deps.Users.FindByID(ctx, *req.SenderID)
		if err != nil {
			logrus.WithField("sender_id", *req.SenderID).Debugf("sender lookup failed: %v", err)
		} else {
			sender = u
		}
	}

	for _, recipientID := range req.Recipients {
		out := d.deliver(ctx, req, priority, recipientID, sender)
		report.ChannelFailures += out.channelFailures
		if out.err != nil {
			report.Failed++
			logrus.WithFields(logrus.Fields{
				"kind":         req.Kind,
				"reference_id": req.ReferenceID,
				"recipient_id": recipientID,
			}).Errorf("notification delivery failed: %v", out.err)
		}
		if !out.created {
			continue
		}
		report.Created++
		report.NotificationIDs = append(report.NotificationIDs, out.notificationID)
		if out.pushed {
			report.Pushed++
		}
		if out.emailed {
			report.Emailed++
		}
		if out.digested {
			report.Digested++
		}
	}

	logrus.WithFields(logrus.Fields{
		"kind":         req.Kind,
		"reference_id": req.ReferenceID,
		"recipients":   report.Recipients,
		"created":      report.Created,
		"failed":       report.Failed,
	}).Info("notifications dispatched")
	return report
}

type recipientOutcome struct {
	notificationID  uint
	created         bool
	pushed          bool
	emailed         bool
	digested        bool
	channelFailures int
	err             error
}

func (d *NotificationDispatcher) deliver(ctx context.Context, req DispatchRequest, priority models.Priority, recipientID uint, sender *models.User) (out recipientOutcome) {
	defer func() {
		if r := recover(); r != nil {
			out.err = fmt.Errorf("panic while delivering: %v", r)
		}
	}()

	decision := d.gate.Decide(ctx, recipientID, priority)

	n := &models.Notification{
		RecipientID: recipientID,
		SenderID:    req.SenderID,
		Type:        req.Kind,
		ReferenceID: req.ReferenceID,
		Status:      models.NotificationUnread,
		Title:       req.Title,
		Message:     req.Message,
		Link:        req.Link,
		Priority:    priority,
		EmailMode:   decision.EmailMode,
		CreateAt:    d.now(),
	}
	if err := d.deps.Notifications.Create(ctx, n); err != nil {
		out.err = fmt.Errorf("create notification: %w", err)
		return out
	}
	out.created = true
	out.notificationID = n.NotificationID

	if decision.EmailMode == models.EmailDigest {
		out.digested = true
	}

	recipient, err := d.deps.Users.FindByID(ctx, recipientID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			out.channelFailures++
		}
		logrus.WithField("recipient_id", recipientID).Warnf("recipient lookup failed, channels skipped: %v", err)
		return out
	}

	if decision.Push && d.deps.Push != nil {
		res := d.deps.Push.Send(ctx, recipient, pushPayloadFor(n), sender)
		switch {
		case res.Failed():
			out.channelFailures++
		case res.Delivered:
			out.pushed = true
		}
	}

	if decision.EmailMode == models.EmailImmediate && d.deps.Email != nil {
		res := d.deps.Email.SendNotification(ctx, recipient, n)
		switch {
		case res.Failed():
			out.channelFailures++
		case res.Delivered:
			if err := d.deps.Notifications.MarkEmailed(ctx, n.NotificationID); err != nil {
				out.channelFailures++
				logrus.WithField("notification_id", n.NotificationID).Errorf("mark emailed failed: %v", err)
			} else {
				out.emailed = true
			}
		}
	}
	return out
}
