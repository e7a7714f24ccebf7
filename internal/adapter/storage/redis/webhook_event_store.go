package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// WebhookEventStore implements ports.WebhookEventStore using Redis SET NX.
// Providers retry webhooks aggressively; recording each event ID once keeps
// replays from re-driving state transitions.
type WebhookEventStore struct {
	client *goredis.Client
	prefix string
}

// NewWebhookEventStore creates a new Redis-backed webhook event store.
func NewWebhookEventStore(client *goredis.Client) *WebhookEventStore {
	return &WebhookEventStore{
		client: client,
		prefix: "webhook:event:",
	}
}

// CheckAndSet atomically records an event ID scoped by provider.
// Returns true if the event is new, false if it was already processed.
func (s *WebhookEventStore) CheckAndSet(ctx context.Context, provider, eventID string, ttl time.Duration) (bool, error) {
	key := s.prefix + provider + ":" + eventID
	result, err := s.client.SetArgs(ctx, key, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if err == goredis.Nil {
			// Key already exists, event was already processed
			return false, nil
		}
		return false, fmt.Errorf("redis webhook event check: %w", err)
	}
	return result == "OK", nil
}
