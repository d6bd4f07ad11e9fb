package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/discovery/internal/events"
)

func TestEncode_Envelope(t *testing.T) {
	msg, err := events.Encode(events.ChannelRunFinished, map[string]int{"new": 3})
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(msg, &got))
	assert.Equal(t, events.ChannelRunFinished, got["type"])
	assert.Equal(t, map[string]any{"new": float64(3)}, got["payload"])
}

func TestEncode_Unmarshalable(t *testing.T) {
	_, err := events.Encode("x", make(chan int))
	assert.Error(t, err)
}

func TestNoop(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, events.Noop{}.Publish(ctx, "anything"))

	ok, err := events.NoopLock{}.TryAcquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, events.NoopLock{}.Release(ctx))
	assert.NoError(t, events.NoopLock{}.Extend(ctx))
}

func TestPublisher_UnreachableRedis(t *testing.T) {
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	err := events.NewPublisher(rdb, events.ChannelRunFinished).Publish(context.Background(), 1)
	assert.ErrorContains(t, err, events.ChannelRunFinished)

	lock := events.NewLock(rdb, "discovery:run", time.Minute)
	_, err = lock.TryAcquire(context.Background())
	assert.Error(t, err)
	assert.Error(t, lock.Extend(context.Background()))
}
