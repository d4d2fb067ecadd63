package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Envelope wraps every published event with its type and timestamp.
type Envelope struct {
	Type        string      `json:"type"`
	Payload     interface{} `json:"payload"`
	PublishedAt time.Time   `json:"published_at"`
}

// Publisher delivers events onto the outbound channel. Consumers (activity
// logging, notifications) subscribe elsewhere.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

// RedisPublisher publishes JSON envelopes on a Redis pub/sub channel.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	timeout time.Duration
}

// NewRedisPublisher creates a publisher for the given channel.
func NewRedisPublisher(client *redis.Client, channel string, timeout time.Duration) *RedisPublisher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &RedisPublisher{client: client, channel: channel, timeout: timeout}
}

// Publish serialises the payload and publishes it. The outbound channel is
// fire-and-forget; delivery retries belong to the consumer side.
func (p *RedisPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	body, err := json.Marshal(Envelope{Type: eventType, Payload: payload, PublishedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", eventType, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.channel, body).Err(); err != nil {
		return fmt.Errorf("publish event %s: %w", eventType, err)
	}
	return nil
}
