package middleware

import (
    "context"
    "fmt"
    "time"

    "github.com/redis/go-redis/v9"

    "github.com/iliyamo/home-services/internal/config"
)

// Verdict is the outcome of one Take.
type Verdict struct {
    Allowed    bool
    Remaining  int           // attempts left right now
    RetryAfter time.Duration // zero when Allowed
}

// Limiter spends one attempt from the bucket stored under key.
type Limiter interface {
    Take(ctx context.Context, key string, b config.Bucket) (Verdict, error)
}

// gcraScript keeps one value per key: the time (ms) at which the bucket is
// full again.  An attempt is refused while that time is more than
// (burst-1)*every in the future.
var gcraScript = redis.NewScript(`
local now   = tonumber(ARGV[1])
local every = tonumber(ARGV[2])
local burst = tonumber(ARGV[3])

local full_at = tonumber(redis.call('GET', KEYS[1]) or now)
if full_at < now then full_at = now end

local open_at = full_at - (burst - 1) * every
if now < open_at then
    return {0, 0, open_at - now}
end

full_at = full_at + every
redis.call('SET', KEYS[1], full_at, 'PX', full_at - now)
local left = math.floor((now + burst * every - full_at) / every)
return {1, left, 0}
`)

// RedisLimiter runs the bucket arithmetic inside Redis so every instance of
// the service shares one count per key.
type RedisLimiter struct {
    rdb *redis.Client
    now func() time.Time
}

// NewRedisLimiter wraps an open client.
func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
    return &RedisLimiter{rdb: rdb, now: time.Now}
}

func (l *RedisLimiter) Take(ctx context.Context, key string, b config.Bucket) (Verdict, error) {
    res, err := gcraScript.Run(ctx, l.rdb, []string{key},
        l.now().UnixMilli(), b.Every.Milliseconds(), b.Burst).Int64Slice()
    if err != nil {
        return Verdict{}, fmt.Errorf("rate limit %s: %w", key, err)
    }
    if len(res) != 3 {
        return Verdict{}, fmt.Errorf("rate limit %s: unexpected reply %v", key, res)
    }
    return Verdict{
        Allowed:    res[0] == 1,
        Remaining:  int(res[1]),
        RetryAfter: time.Duration(res[2]) * time.Millisecond,
    }, nil
}
