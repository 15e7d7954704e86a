package redis

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/zapdoc-api/pkg/circuitbreaker"
	"github.com/jwalitptl/zapdoc-api/pkg/metrics"
)

func TestNewRedisBrokerRejectsBadURL(t *testing.T) {
	_, err := NewRedisBroker(context.Background(), Config{URL: "http://nope"}, zerolog.Nop(), nil)
	assert.Error(t, err)
}

func TestPublishOpensBreakerWhenRedisIsDown(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	b := newBroker(client, zerolog.Nop(), metrics.NewNop())
	defer b.Close()

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		err := b.Publish(ctx, "appointment.booked", []byte(`{}`))
		require.Error(t, err)
		assert.False(t, circuitbreaker.IsOpen(err))
	}

	err := b.Publish(ctx, "appointment.booked", []byte(`{}`))
	require.Error(t, err)
	assert.True(t, circuitbreaker.IsOpen(err))
}
