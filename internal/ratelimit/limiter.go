package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	ErrRateLimited      = errors.New("rate limited")
	ErrRedisUnavailable = errors.New("redis unavailable")
)

const keyPrefix = "auth:throttle:"

// Limiter is a fixed-window request counter in Redis, shared by every
// instance of the service.
type Limiter struct {
	redis  redis.UniversalClient
	max    int
	window time.Duration
}

func New(client redis.UniversalClient, max int, window time.Duration) *Limiter {
	return &Limiter{
		redis:  client,
		max:    max,
		window: window,
	}
}

// NewClient builds a client from a redis:// URL and pings it.
func NewClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return client, nil
}

// Allow counts one hit against key and returns ErrRateLimited once the
// window budget is spent. Redis failures are returned as ErrRedisUnavailable
// and the caller decides whether to let the request through.
func (l *Limiter) Allow(ctx context.Context, key string) error {
	count, err := l.incrementWithTTL(ctx, keyPrefix+key)
	if err != nil {
		return err
	}
	if count > int64(l.max) {
		return ErrRateLimited
	}
	return nil
}

// Reset clears the counter for key.
func (l *Limiter) Reset(ctx context.Context, key string) error {
	if err := l.redis.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

func (l *Limiter) incrementWithTTL(ctx context.Context, key string) (int64, error) {
	count, err := l.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	// Fixed window: the TTL is set on the first hit only.
	if count == 1 {
		if err := l.redis.Expire(ctx, key, l.window).Err(); err != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}
	return count, nil
}
