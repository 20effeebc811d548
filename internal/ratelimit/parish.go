package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/ecclesia/internal/config"
)

const keyParishMutations = "ratelimit:parish:%s:mutations"

var ErrParishRequired = errors.New("rate limit parish is required")

// ParishLimiter throttles mutating requests per parish. A nil limiter allows everything.
type ParishLimiter struct {
	bucket *TokenBucket
	rate   float64
	burst  int
}

// NewRedisClient returns nil when rate limiting is disabled.
func NewRedisClient(cfg config.Config) (*redis.Client, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}
	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: strings.TrimSpace(limitCfg.Password),
		DB:       limitCfg.DB,
	}), nil
}

func NewParishLimiter(cfg config.Config, client *redis.Client) (*ParishLimiter, error) {
	if client == nil {
		return nil, nil
	}
	limitCfg := cfg.RateLimit
	if limitCfg.Rate <= 0 || limitCfg.Burst <= 0 {
		return nil, errors.New("parish rate limit must be positive")
	}
	return &ParishLimiter{
		bucket: NewTokenBucket(client),
		rate:   limitCfg.Rate,
		burst:  limitCfg.Burst,
	}, nil
}

func (l *ParishLimiter) Enabled() bool {
	return l != nil && l.bucket != nil
}

func (l *ParishLimiter) AllowParish(ctx context.Context, parishID string) (*RateLimitResult, error) {
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	parishID = strings.TrimSpace(parishID)
	if parishID == "" {
		return &RateLimitResult{Allowed: false}, ErrParishRequired
	}
	return l.bucket.Allow(ctx, parishKey(parishID), l.rate, l.burst)
}

func parishKey(parishID string) string {
	return fmt.Sprintf(keyParishMutations, parishID)
}
