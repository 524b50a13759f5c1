package middleware

import (
	"context"
	"fmt"
	"math"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/KimiAn12/StartUpIdea/internal/shared/telemetry"
)

// RedisLimiter shares limits across API instances using a fixed window per key.
// The window length is Burst/Rate seconds and admits Burst requests.
type RedisLimiter struct {
	rdb    goredis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisLimiter connects to addr and verifies it with a ping.
func NewRedisLimiter(ctx context.Context, addr, password string) (*RedisLimiter, *goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    password,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisLimiter{rdb: rdb, prefix: "ratelimit:", now: time.Now}, rdb, nil
}

func (l *RedisLimiter) Allow(ctx context.Context, key string, rule RateLimitRule) (bool, time.Duration) {
	if rule.Rate <= 0 || rule.Burst <= 0 {
		return true, 0
	}
	window := time.Duration(math.Ceil(float64(rule.Burst)/rule.Rate*1000)) * time.Millisecond
	if window < time.Second {
		window = time.Second
	}
	slot := l.now().UnixMilli() / window.Milliseconds()
	redisKey := fmt.Sprintf("%s%s:%d", l.prefix, key, slot)

	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	pipe.PExpire(ctx, redisKey, window)
	if _, err := pipe.Exec(ctx); err != nil {
		// Fail open: losing the limiter must not take the API down.
		telemetry.Warn("ratelimit.redis_error", map[string]any{"error": err.Error()})
		return true, 0
	}
	if incr.Val() <= int64(rule.Burst) {
		return true, 0
	}
	elapsed := time.Duration(l.now().UnixMilli()%window.Milliseconds()) * time.Millisecond
	return false, window - elapsed
}

var _ Limiter = (*RedisLimiter)(nil)
