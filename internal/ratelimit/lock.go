package ratelimit

import (
	"context"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	redis "github.com/redis/go-redis/v9"
)

var (
	ErrLockUnavailable = errors.New("lock_unavailable")
	ErrLockKeyRequired = errors.New("lock_key_required")
	ErrLockTTLInvalid  = errors.New("lock_ttl_invalid")
)

// compare-and-delete so a holder whose lease expired cannot drop a newer lease.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out short leases on redis keys. The scheduler uses it so only
// one replica sweeps expired concessions per tick.
type Locker struct {
	client *redis.Client
}

// NewLocker returns nil when redis is not configured; callers treat a nil
// Locker as "run unlocked".
func NewLocker(client *redis.Client) *Locker {
	if client == nil {
		return nil
	}
	return &Locker{client: client}
}

// TryLock returns the lease token and whether the lease was acquired.
func (l *Locker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	switch {
	case l == nil || l.client == nil:
		return "", false, ErrLockUnavailable
	case key == "":
		return "", false, ErrLockKeyRequired
	case ttl <= 0:
		return "", false, ErrLockTTLInvalid
	}

	token := ulid.Make().String()
	acquired, err := l.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, acquired, nil
}

// Release is a no-op for an empty token or a nil Locker.
func (l *Locker) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || key == "" || token == "" {
		return nil
	}
	return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
}
