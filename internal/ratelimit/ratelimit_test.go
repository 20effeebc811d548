package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/ecclesia/internal/config"
	"github.com/stretchr/testify/require"
)

func TestDisabledRateLimitProvidesNothing(t *testing.T) {
	client, err := NewRedisClient(config.Config{})
	require.NoError(t, err)
	require.Nil(t, client)

	limiter, err := NewParishLimiter(config.Config{}, client)
	require.NoError(t, err)
	require.False(t, limiter.Enabled())

	res, err := limiter.AllowParish(context.Background(), "")
	require.NoError(t, err)
	require.True(t, res.Allowed)

	require.Nil(t, NewLocker(nil))
	require.Nil(t, NewTokenBucket(nil))
}

func TestEnabledRateLimitRequiresAddr(t *testing.T) {
	_, err := NewRedisClient(config.Config{RateLimit: config.RateLimitConfig{Enabled: true, RedisAddr: "  "}})
	require.Error(t, err)
}

func TestNilLockerRejectsLocking(t *testing.T) {
	var l *Locker
	_, ok, err := l.TryLock(context.Background(), "k", time.Second)
	require.ErrorIs(t, err, ErrLockUnavailable)
	require.False(t, ok)
	require.NoError(t, l.Release(context.Background(), "k", "t"))
}

func TestTokenBucketRejectsBadArguments(t *testing.T) {
	var bucket *TokenBucket
	res, err := bucket.Allow(context.Background(), "k", 1, 1)
	require.ErrorIs(t, err, ErrLimiterUnavailable)
	require.False(t, res.Allowed)
}

func TestDefaultBucketTTL(t *testing.T) {
	require.Equal(t, time.Second, defaultBucketTTL(0, 10))
	require.Equal(t, 4*time.Second, defaultBucketTTL(10, 20))
	require.Equal(t, time.Second, defaultBucketTTL(1000, 1))
}

func TestCastHelpers(t *testing.T) {
	require.Equal(t, int64(1), castToInt(int64(1)))
	require.Equal(t, int64(7), castToInt("7"))
	require.Equal(t, int64(0), castToInt("x"))
	require.Equal(t, 2.5, castToFloat("2.5"))
	require.Equal(t, float64(3), castToFloat(int64(3)))
	require.Equal(t, float64(0), castToFloat(nil))
}

func TestParishKey(t *testing.T) {
	require.Equal(t, "ratelimit:parish:abc:mutations", parishKey("abc"))
}
