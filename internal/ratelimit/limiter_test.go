package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/AnthoniusHendriyanto/auth-core/internal/ratelimit"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLimiter(t *testing.T, max int, window time.Duration) (*ratelimit.Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return ratelimit.New(client, max, window), mr
}

func TestLimiter_Allow(t *testing.T) {
	ctx := context.Background()

	t.Run("blocks after budget", func(t *testing.T) {
		l, _ := newLimiter(t, 3, time.Minute)

		for i := 0; i < 3; i++ {
			require.NoError(t, l.Allow(ctx, "login:127.0.0.1"))
		}
		assert.ErrorIs(t, l.Allow(ctx, "login:127.0.0.1"), ratelimit.ErrRateLimited)
		assert.NoError(t, l.Allow(ctx, "login:10.0.0.1"))
	})

	t.Run("window expires", func(t *testing.T) {
		l, mr := newLimiter(t, 1, time.Minute)

		require.NoError(t, l.Allow(ctx, "signup:ip"))
		assert.ErrorIs(t, l.Allow(ctx, "signup:ip"), ratelimit.ErrRateLimited)

		ttl := mr.TTL("auth:throttle:signup:ip")
		assert.Equal(t, time.Minute, ttl)

		mr.FastForward(61 * time.Second)
		assert.NoError(t, l.Allow(ctx, "signup:ip"))
	})

	t.Run("reset", func(t *testing.T) {
		l, _ := newLimiter(t, 1, time.Minute)

		require.NoError(t, l.Allow(ctx, "refresh:ip"))
		require.NoError(t, l.Reset(ctx, "refresh:ip"))
		assert.NoError(t, l.Allow(ctx, "refresh:ip"))
	})

	t.Run("redis down", func(t *testing.T) {
		l, mr := newLimiter(t, 1, time.Minute)
		mr.Close()

		err := l.Allow(ctx, "login:ip")
		assert.ErrorIs(t, err, ratelimit.ErrRedisUnavailable)
	})
}

func TestNewClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := ratelimit.NewClient(context.Background(), "redis://"+mr.Addr()+"/0")
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	_, err = ratelimit.NewClient(context.Background(), "not a url")
	assert.Error(t, err)
}
