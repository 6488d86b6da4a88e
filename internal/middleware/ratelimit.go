package middleware

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/carpool-identity/internal/config"
)

// takeScript refills the bucket for the elapsed whole intervals and takes
// one token. It returns {allowed, remaining, retry_after_ms}.
var takeScript = redis.NewScript(`
local tokens, last = unpack(redis.call('HMGET', KEYS[1], 'tokens', 'last_refill_ms'))
local now = tonumber(ARGV[1])
local cap = tonumber(ARGV[2])
local per = tonumber(ARGV[3])
local every = tonumber(ARGV[4])
tokens = tonumber(tokens) or cap
last = tonumber(last) or now

local steps = math.floor(math.max(0, now - last) / every)
if steps > 0 then
	tokens = math.min(cap, tokens + steps * per)
	last = last + steps * every
end

local ok, wait = 0, 0
if tokens > 0 then
	ok = 1
	tokens = tokens - 1
else
	wait = math.max(0, every - (now - last))
end
redis.call('HSET', KEYS[1], 'tokens', tokens, 'last_refill_ms', last)
redis.call('EXPIRE', KEYS[1], ARGV[5])
return {ok, tokens, wait}
`)

// decision is one bucket answer.
type decision struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

type bucket struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
}

func (b bucket) take(ctx context.Context, key string, now time.Time) (decision, error) {
	res, err := takeScript.Run(ctx, b.rdb, []string{key},
		now.UnixMilli(),
		b.cfg.Capacity,
		b.cfg.RefillTokens,
		b.cfg.RefillInterval.Milliseconds(),
		int64(b.cfg.TTL/time.Second),
	).Int64Slice()
	if err != nil {
		return decision{}, err
	}
	if len(res) != 3 {
		return decision{}, fmt.Errorf("token bucket: %d values returned", len(res))
	}
	return decision{
		allowed:   res[0] == 1,
		remaining: res[1],
		retry:     time.Duration(res[2]) * time.Millisecond,
	}, nil
}

// NewTokenBucket throttles the unauthenticated credential routes (login and
// one-time codes) so phone numbers cannot be guessed or flooded with SMS.
// Without Redis, or when Redis errors, requests pass: the limiter slows
// attackers down but is not what keeps accounts safe.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.SugaredLogger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	b := bucket{cfg: cfg, rdb: rdb}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := buildRateKey(cfg, c)
			d, err := b.take(c.Request().Context(), key, time.Now())
			if err != nil {
				log.Warnw("rate limit unavailable, letting request through", "key", key, "error", err)
				return next(c)
			}

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(d.remaining, 10))
			if d.allowed {
				return next(c)
			}
			secs := int(math.Ceil(d.retry.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				log.Debugw("rate limited", "key", key, "retry_after", d.retry.String())
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too many attempts, try again later",
				"retry_after": secs,
			})
		}
	}
}

// buildRateKey scopes a bucket by the configured strategy. Strategies name
// their parts joined by '_' (ip, user, route); unknown strategies use all
// three.
func buildRateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	parts := map[string]string{
		"ip":    ip,
		"user":  rateSubject(c),
		"route": c.Request().Method + " " + c.Path(),
	}
	strategy := strings.ToLower(cfg.KeyStrategy)
	names := strings.Split(strategy, "_")
	for _, n := range names {
		if _, ok := parts[n]; !ok {
			names = []string{"ip", "user", "route"}
			break
		}
	}
	key := []string{cfg.Prefix}
	for _, n := range names {
		key = append(key, n, parts[n])
	}
	return strings.Join(key, ":")
}
