package calls

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// NoopLimiter never limits. Used when no per-lead cap is configured.
type NoopLimiter struct{}

func (NoopLimiter) Acquire(ctx context.Context, leadID string) (bool, error) { return true, nil }
func (NoopLimiter) Release(ctx context.Context, leadID string) error         { return nil }

// RedisLimiter caps concurrent in-flight outbound calls per lead.
//
// Slots are counters with a TTL so a crashed process or a lost terminal callback
// cannot hold a lead's slot forever.
type RedisLimiter struct {
	rdb    *redis.Client
	limit  int
	ttl    time.Duration
	prefix string
}

func NewRedisLimiter(rdb *redis.Client, limit int, ttl time.Duration) (*RedisLimiter, error) {
	if rdb == nil {
		return nil, errors.New("calls: redis client is nil")
	}
	if limit <= 0 {
		return nil, errors.New("calls: limit must be > 0")
	}
	if ttl <= 0 {
		return nil, errors.New("calls: ttl must be > 0")
	}
	return &RedisLimiter{rdb: rdb, limit: limit, ttl: ttl, prefix: "comms:calls:inflight:lead:"}, nil
}

func (l *RedisLimiter) key(leadID string) string { return l.prefix + leadID }

// acquireScript increments the counter and refuses past the limit.
// KEYS[1] counter, ARGV[1] limit, ARGV[2] ttl ms. Returns 1 acquired, 0 rejected.
var acquireScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 or redis.call('PTTL', KEYS[1]) < 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[2])
end
if current > tonumber(ARGV[1]) then
  redis.call('DECR', KEYS[1])
  return 0
end
return 1
`)

// releaseScript decrements the counter and drops it at zero.
var releaseScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
local current = redis.call('DECR', KEYS[1])
if current <= 0 then
  redis.call('DEL', KEYS[1])
end
return 1
`)

func (l *RedisLimiter) Acquire(ctx context.Context, leadID string) (bool, error) {
	if leadID == "" {
		return false, errors.New("calls: lead id is required")
	}
	res, err := acquireScript.Run(ctx, l.rdb, []string{l.key(leadID)}, l.limit, l.ttl.Milliseconds()).Int()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

func (l *RedisLimiter) Release(ctx context.Context, leadID string) error {
	if leadID == "" {
		return errors.New("calls: lead id is required")
	}
	return releaseScript.Run(ctx, l.rdb, []string{l.key(leadID)}).Err()
}
