package ratelimit

import (
	"context"
	"errors"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
)

var (
	ErrLimiterUnavailable = errors.New("rate_limiter_unavailable")
	ErrBucketKeyRequired  = errors.New("rate_limit_key_required")
	ErrBucketParams       = errors.New("rate_limit_params_invalid")
	errScriptReply        = errors.New("rate_limit_script_reply")
)

// Tokens are returned with tostring: integer replies from Lua are truncated
// by redis and the fractional part drives Retry-After.
var bucketScript = redis.NewScript(`
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = clock[1] * 1000 + math.floor(clock[2] / 1000)

local state = redis.call("HMGET", KEYS[1], "tokens", "ts")
local tokens = tonumber(state[1]) or burst
local ts = tonumber(state[2]) or now

local elapsed = math.max(0, now - ts)
tokens = math.min(burst, tokens + (elapsed / 1000) * rate)

local allowed = 0
if tokens >= 1 then
  allowed = 1
  tokens = tokens - 1
end

redis.call("HSET", KEYS[1], "tokens", tostring(tokens), "ts", now)
redis.call("PEXPIRE", KEYS[1], ttl)
return {allowed, tostring(tokens), now}
`)

// TokenBucket is a redis-backed token bucket shared by all replicas.
type TokenBucket struct {
	client *redis.Client
}

type RateLimitResult struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

func NewTokenBucket(client *redis.Client) *TokenBucket {
	if client == nil {
		return nil
	}
	return &TokenBucket{client: client}
}

// Allow takes one token from the bucket at key. rate is tokens per second.
func (t *TokenBucket) Allow(ctx context.Context, key string, rate float64, burst int) (*RateLimitResult, error) {
	denied := &RateLimitResult{Limit: burst}
	switch {
	case t == nil || t.client == nil:
		return denied, ErrLimiterUnavailable
	case key == "":
		return denied, ErrBucketKeyRequired
	case rate <= 0 || burst <= 0:
		return denied, ErrBucketParams
	}

	ttl := defaultBucketTTL(rate, burst)
	reply, err := bucketScript.Run(ctx, t.client, []string{key}, rate, burst, ttl.Milliseconds()).Slice()
	if err != nil {
		return denied, err
	}
	if len(reply) != 3 {
		return denied, errScriptReply
	}

	remaining := castToFloat(reply[1])
	res := &RateLimitResult{
		Allowed:   castToInt(reply[0]) == 1,
		Limit:     burst,
		Remaining: int(math.Floor(remaining)),
	}
	if !res.Allowed {
		res.RetryAfter = time.Duration((1 - remaining) / rate * float64(time.Second))
	}
	res.ResetTime = time.UnixMilli(castToInt(reply[2])).Add(res.RetryAfter)
	return res, nil
}

func defaultBucketTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Ceil((float64(burst) / rate) * 2)
	if seconds < 1 {
		seconds = 1
	}
	return time.Duration(seconds) * time.Second
}

func castToInt(v any) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case int:
		return int64(val)
	case float64:
		return int64(val)
	case string:
		n, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

func castToFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case int64:
		return float64(val)
	case string:
		f, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}
