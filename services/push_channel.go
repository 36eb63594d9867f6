package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"taskboard-api/models"
	"taskboard-api/utils"
)

const (
	ChannelPush  = "push"
	ChannelEmail = "email"
)

// Result is the outcome of one channel call. Channels never return errors to
// the dispatcher; a failure is reported here and the caller moves on.
type Result struct {
	Channel   string
	Delivered bool
	Skipped   bool
	Err       error
}

func (r Result) Failed() bool { return r.Err != nil }

func delivered(channel string) Result { return Result{Channel: channel, Delivered: true} }
func skipped(channel string) Result   { return Result{Channel: channel, Skipped: true} }
func failed(channel string, err error) Result {
	return Result{Channel: channel, Err: err}
}

// Broker moves an encoded push message to whoever listens on topic.
type Broker interface {
	Publish(ctx context.Context, topic string, data []byte) error
}

type PushSender struct {
	UserID    uint   `json:"user_id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

// PushPayload is the message a connected client receives.
type PushPayload struct {
	ID             string           `json:"id"`
	NotificationID uint             `json:"notification_id"`
	Type           models.EventKind `json:"type"`
	Icon           string           `json:"icon"`
	Priority       models.Priority  `json:"priority"`
	Title          string           `json:"title"`
	Message        string           `json:"message"`
	Link           string           `json:"link,omitempty"`
	ReferenceID    uint             `json:"reference_id"`
	Sender         *PushSender      `json:"sender,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
}

func pushPayloadFor(n *models.Notification) PushPayload {
	return PushPayload{
		NotificationID: n.NotificationID,
		Type:           n.Type,
		Icon:           n.Type.Icon(),
		Priority:       n.Priority,
		Title:          n.Title,
		Message:        n.Message,
		Link:           n.Link,
		ReferenceID:    n.ReferenceID,
		CreatedAt:      n.CreateAt,
	}
}

// PushChannel delivers real-time messages addressed by recipient email.
// No acknowledgement, no retry.
type PushChannel struct {
	broker  Broker
	timeout time.Duration
}

func NewPushChannel(broker Broker, timeout time.Duration) *PushChannel {
	return &PushChannel{broker: broker, timeout: timeout}
}

func (p *PushChannel) Send(ctx context.Context, recipient *models.User, payload PushPayload, sender *models.User) Result {
	if recipient == nil {
		return skipped(ChannelPush)
	}
	topic := utils.NormalizeEmail(recipient.Email)
	if topic == "" {
		return skipped(ChannelPush)
	}

	if payload.ID == "" {
		payload.ID = uuid.NewString()
	}
	if sender != nil {
		payload.Sender = &PushSender{UserID: sender.UserID, Name: sender.Name, AvatarURL: sender.AvatarURL}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return failed(ChannelPush, fmt.Errorf("encode push payload: %w", err))
	}

	cctx, cancel := channelContext(ctx, p.timeout)
	defer cancel()
	if err := p.broker.Publish(cctx, topic, data); err != nil {
		logrus.WithFields(logrus.Fields{
			"recipient_id":    recipient.UserID,
			"notification_id": payload.NotificationID,
		}).Warnf("push publish failed: %v", err)
		return failed(ChannelPush, err)
	}
	return delivered(ChannelPush)
}
