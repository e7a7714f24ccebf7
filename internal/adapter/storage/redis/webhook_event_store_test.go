package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebhookEventStore_CheckAndSet_NewEvent(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewWebhookEventStore(client)
	ctx := context.Background()

	ok, err := store.CheckAndSet(ctx, "mockpay", "evt-abc", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok, "new event should return true")
}

func TestWebhookEventStore_CheckAndSet_ReplayedEvent(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewWebhookEventStore(client)
	ctx := context.Background()

	// First delivery
	ok, err := store.CheckAndSet(ctx, "mockpay", "evt-xyz", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	// Provider retry
	ok, err = store.CheckAndSet(ctx, "mockpay", "evt-xyz", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok, "replayed event should return false")
}

func TestWebhookEventStore_CheckAndSet_DifferentProviders(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewWebhookEventStore(client)
	ctx := context.Background()

	// Same event ID from two providers must not collide
	ok1, err := store.CheckAndSet(ctx, "mockpay", "evt-123", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok1)

	ok2, err := store.CheckAndSet(ctx, "stripe", "evt-123", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok2)
}

func TestWebhookEventStore_CheckAndSet_ExpiredEvent(t *testing.T) {
	s := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: s.Addr()})
	store := NewWebhookEventStore(client)
	ctx := context.Background()

	ok, err := store.CheckAndSet(ctx, "mockpay", "evt-expire", time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	// Fast-forward past TTL
	s.FastForward(2 * time.Second)

	ok, err = store.CheckAndSet(ctx, "mockpay", "evt-expire", time.Second)
	require.NoError(t, err)
	assert.True(t, ok, "expired event id should be accepted again")
}
