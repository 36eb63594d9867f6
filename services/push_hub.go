package services

import (
	"context"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const defaultSubscriberBuffer = 16

// Hub fans push messages out to the Server-Sent-Event streams connected to
// this process. A subscriber whose buffer is full misses the message.
type Hub struct {
	mu     sync.RWMutex
	topics map[string]map[string]chan []byte
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = defaultSubscriberBuffer
	}
	return &Hub{topics: make(map[string]map[string]chan []byte), buffer: buffer}
}

// Subscribe registers a stream on topic. cancel must be called once the
// stream ends; it closes the returned channel.
func (h *Hub) Subscribe(topic string) (id string, messages <-chan []byte, cancel func()) {
	id = uuid.NewString()
	ch := make(chan []byte, h.buffer)

	h.mu.Lock()
	subs, ok := h.topics[topic]
	if !ok {
		subs = make(map[string]chan []byte)
		h.topics[topic] = subs
	}
	subs[id] = ch
	h.mu.Unlock()

	var once sync.Once
	cancel = func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.topics[topic]; ok {
				delete(subs, id)
				if len(subs) == 0 {
					delete(h.topics, topic)
				}
			}
			close(ch)
		})
	}
	return id, ch, cancel
}

// Deliver hands data to every local subscriber of topic and returns how many
// received it.
func (h *Hub) Deliver(topic string, data []byte) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for id, ch := range h.topics[topic] {
		select {
		case ch <- data:
			n++
		default:
			logrus.WithFields(logrus.Fields{"topic": topic, "subscriber": id}).
				Debug("push subscriber buffer full, message dropped")
		}
	}
	return n
}

func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Publish makes the Hub a Broker for single-instance deployments.
func (h *Hub) Publish(_ context.Context, topic string, data []byte) error {
	h.Deliver(topic, data)
	return nil
}

const redisPushPrefix = "notify:user:"

// RedisBroker publishes push messages on a per-user Redis channel so every API
// instance can reach the user's open streams.
type RedisBroker struct {
	rdb *redis.Client
}

func NewRedisBroker(rdb *redis.Client) *RedisBroker {
	return &RedisBroker{rdb: rdb}
}

func (b *RedisBroker) Publish(ctx context.Context, topic string, data []byte) error {
	return b.rdb.Publish(ctx, redisPushPrefix+topic, data).Err()
}

// RunRedisRelay forwards messages from the per-user Redis channels into the
// local hub until ctx is done.
func RunRedisRelay(ctx context.Context, rdb *redis.Client, hub *Hub) error {
	pubsub := rdb.PSubscribe(ctx, redisPushPrefix+"*")
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}
	logrus.Info("push relay subscribed to redis")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			topic := strings.TrimPrefix(msg.Channel, redisPushPrefix)
			hub.Deliver(topic, []byte(msg.Payload))
		}
	}
}
