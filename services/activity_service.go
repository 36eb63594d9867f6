package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"

	"taskboard-api/models"
)

// ActivityPublisher mirrors appended records to downstream consumers.
type ActivityPublisher interface {
	PublishActivity(ctx context.Context, rec ActivityMessage) error
}

// ActivityMessage is the wire form of an appended record.
type ActivityMessage struct {
	ActivityID uint            `json:"activity_id"`
	EntityType string          `json:"entity_type"`
	EntityID   uint            `json:"entity_id"`
	Action     string          `json:"action"`
	ActorID    *uint           `json:"actor_id,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

func (m ActivityMessage) toRecord() models.ActivityRecord {
	return models.ActivityRecord{
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		Action:     m.Action,
		ActorID:    m.ActorID,
		Payload:    string(m.Payload),
		CreateAt:   m.CreatedAt,
	}
}

// ActivityLog is the append-only fact store every event writes to.
type ActivityLog struct {
	store     ActivityStore
	publisher ActivityPublisher
	now       func() time.Time
	// pending is set on transaction-scoped logs; mirrored messages wait
	// there until flush.
	pending *activityOutbox
}

type activityOutbox struct {
	mu       sync.Mutex
	messages []ActivityMessage
}

func (o *activityOutbox) add(msg ActivityMessage) {
	o.mu.Lock()
	o.messages = append(o.messages, msg)
	o.mu.Unlock()
}

func (o *activityOutbox) drain() []ActivityMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.messages
	o.messages = nil
	return out
}

func NewActivityLog(store ActivityStore, publisher ActivityPublisher) *ActivityLog {
	return &ActivityLog{store: store, publisher: publisher, now: time.Now}
}

// inTx returns a copy of the log writing to store that holds mirror messages
// until flush. A copy that is never flushed publishes nothing.
func (l *ActivityLog) inTx(store ActivityStore) *ActivityLog {
	clone := *l
	clone.store = store
	clone.pending = &activityOutbox{}
	return &clone
}

// flush publishes the messages held by a transaction-scoped log. Call it only
// once the transaction has committed.
func (l *ActivityLog) flush(ctx context.Context) {
	if l.pending == nil {
		return
	}
	for _, msg := range l.pending.drain() {
		l.publish(ctx, msg)
	}
}

func (l *ActivityLog) publish(ctx context.Context, msg ActivityMessage) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.PublishActivity(ctx, msg); err != nil {
		logrus.WithFields(logrus.Fields{
			"entity_type": msg.EntityType,
			"entity_id":   msg.EntityID,
			"action":      msg.Action,
		}).Warnf("activity mirror publish failed: %v", err)
	}
}

// Append records one fact. Missing entityType, entityID or action makes it a
// silent no-op.
func (l *ActivityLog) Append(ctx context.Context, entityType string, entityID uint, action string, actorID *uint, payload map[string]any) error {
	entityType = strings.TrimSpace(entityType)
	action = strings.TrimSpace(action)
	if entityType == "" || entityID == 0 || action == "" {
		return nil
	}

	body := "{}"
	if len(payload) > 0 {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode activity payload: %w", err)
		}
		body = string(raw)
	}

	rec := ActivityMessage{
		EntityType: entityType,
		EntityID:   entityID,
		Action:     action,
		ActorID:    actorID,
		Payload:    json.RawMessage(body),
		CreatedAt:  l.now(),
	}
	stored := rec.toRecord()
	if err := l.store.Insert(ctx, &stored); err != nil {
		return err
	}
	rec.ActivityID = stored.ActivityID

	if l.pending != nil {
		if l.publisher != nil {
			l.pending.add(rec)
		}
		return nil
	}
	l.publish(ctx, rec)
	return nil
}

// ExistsForDedup is the exact-match lookup behind the payment idempotency guard.
func (l *ActivityLog) ExistsForDedup(ctx context.Context, actorID *uint, entityType string, entityID uint, action string) (bool, error) {
	return l.store.Exists(ctx, actorID, entityType, entityID, action)
}

// Query returns the records of one entity, newest first.
func (l *ActivityLog) Query(ctx context.Context, entityType string, entityID uint) ([]ActivityMessage, error) {
	records, err := l.store.ListByEntity(ctx, entityType, entityID)
	if err != nil {
		return nil, err
	}
	out := make([]ActivityMessage, 0, len(records))
	for _, r := range records {
		msg := ActivityMessage{
			ActivityID: r.ActivityID,
			EntityType: r.EntityType,
			EntityID:   r.EntityID,
			Action:     r.Action,
			ActorID:    r.ActorID,
			CreatedAt:  r.CreateAt,
		}
		if json.Valid([]byte(r.Payload)) {
			msg.Payload = json.RawMessage(r.Payload)
		}
		out = append(out, msg)
	}
	return out, nil
}

// AMQPActivityPublisher publishes records to a topic exchange with routing
// key activity.<entity type>.<action>.
type AMQPActivityPublisher struct {
	mu       sync.Mutex
	channel  *amqp.Channel
	exchange string
}

func NewAMQPActivityPublisher(channel *amqp.Channel, exchange string) *AMQPActivityPublisher {
	return &AMQPActivityPublisher{channel: channel, exchange: exchange}
}

func activityRoutingKey(entityType, action string) string {
	return "activity." + strings.ToLower(entityType) + "." + strings.ToLower(action)
}

func (p *AMQPActivityPublisher) PublishActivity(_ context.Context, rec ActivityMessage) error {
	body, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channel.Publish(p.exchange, activityRoutingKey(rec.EntityType, rec.Action), false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   uuid.NewString(),
		Timestamp:   rec.CreatedAt,
		Body:        body,
	})
}
