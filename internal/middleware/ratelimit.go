package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/iliyamo/rental-portal/internal/config"
)

// takeScript refills the bucket by whole intervals, then tries to take one
// token.  It returns {allowed, tokens left, ms until the next refill}.
var takeScript = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'refilled_at')
local tokens = tonumber(state[1])
local refilled_at = tonumber(state[2])
if tokens == nil or refilled_at == nil then
	tokens = capacity
	refilled_at = now
end

local steps = math.floor(math.max(0, now - refilled_at) / interval)
if steps > 0 then
	tokens = math.min(capacity, tokens + steps * refill)
	refilled_at = refilled_at + steps * interval
end

local allowed = 0
local wait = 0
if tokens > 0 then
	allowed = 1
	tokens = tokens - 1
else
	wait = math.max(0, interval - (now - refilled_at))
end

redis.call('HSET', key, 'tokens', tokens, 'refilled_at', refilled_at)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, wait}
`)

// Draw is the outcome of one bucket draw.
type Draw struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration
}

// Bucket is a Redis token bucket shared by every devapi replica.
type Bucket struct {
	cfg config.RateLimit
	rdb *redis.Client
	now func() time.Time
}

func NewBucket(cfg config.RateLimit, rdb *redis.Client) *Bucket {
	return &Bucket{cfg: cfg, rdb: rdb, now: time.Now}
}

// Take draws one token from the bucket stored under key.
func (b *Bucket) Take(ctx context.Context, key string) (Draw, error) {
	res, err := takeScript.Run(ctx, b.rdb, []string{key},
		b.now().UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return Draw{}, err
	}
	if len(res) != 3 {
		return Draw{}, fmt.Errorf("ratelimit: unexpected script result %v", res)
	}
	return Draw{
		Allowed:    res[0] == 1,
		Remaining:  res[1],
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket throttles requests keyed by client IP, caller and route.
// Redis errors fail open.  A disabled limiter or a nil client yields a
// pass-through middleware.
func NewTokenBucket(cfg config.RateLimit, rdb *redis.Client, log zerolog.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	b := NewBucket(cfg, rdb)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg.Prefix, c)
			t, err := b.Take(c.Request().Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("key", key).Msg("ratelimit unavailable, allowing request")
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(t.Remaining, 10))
			if t.Allowed {
				return next(c)
			}

			secs := int((t.RetryAfter + time.Second - 1) / time.Second)
			h.Set("Retry-After", strconv.Itoa(secs))
			log.Info().Str("key", key).Dur("retry_after", t.RetryAfter).Msg("ratelimit block")
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// buildRateKey is prefix:ip:<ip>:user:<id|guest>:route:<method path>.
func buildRateKey(prefix string, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	route := c.Request().Method + " " + c.Path()
	return strings.Join([]string{prefix, "ip", ip, "user", userID(c), "route", route}, ":")
}
