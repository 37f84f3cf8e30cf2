package middleware

import (
	"context"
	"errors"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

// FailPolicy defines the behavior when the rate limit store (Redis) is unavailable.
type FailPolicy int

const (
	// FailOpen allows the request to proceed if Redis is unavailable.
	FailOpen FailPolicy = iota
	// FailClosed blocks the request (503 Service Unavailable) if Redis is unavailable.
	FailClosed
)

var errNoLimiterStore = errors.New("rate limit store not configured")

// window is the state of one fixed rate-limit window after counting a hit.
type window struct {
	count     int64
	remaining int
	resetIn   time.Duration
}

func limitsEnforced() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return false
	}
	return true
}

// countHit increments the counter for key and makes sure it expires.
// INCR and TTL run in one MULTI; a counter found without a TTL gets one.
func countHit(ctx context.Context, rdb *redis.Client, key string, limit int, period time.Duration) (window, error) {
	var incr *redis.IntCmd
	var ttl *redis.DurationCmd
	_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		ttl = pipe.TTL(ctx, key)
		return nil
	})
	if err != nil {
		return window{}, err
	}

	resetIn := ttl.Val()
	if resetIn <= 0 {
		if err := rdb.Expire(ctx, key, period).Err(); err != nil {
			return window{}, err
		}
		resetIn = period
	}

	w := window{count: incr.Val(), resetIn: resetIn}
	if left := int64(limit) - w.count; left > 0 {
		w.remaining = int(left)
	}
	return w, nil
}

// CheckRateLimit counts one hit of id against resource and reports whether it
// is within limit for the current window.
// Limits are not enforced when APP_ENV is unset, "test" or "development".
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, id string, limit int, period time.Duration) (bool, error) {
	if !limitsEnforced() {
		return true, nil
	}
	if rdb == nil {
		return false, errNoLimiterStore
	}
	w, err := countHit(ctx, rdb, "rl:"+resource+":"+id, limit, period)
	if err != nil {
		return false, err
	}
	return w.count <= int64(limit), nil
}

// RateLimit returns a Fiber middleware enforcing `limit` requests per `period` per client IP.
// It defaults to FailOpen policy.
func RateLimit(rdb *redis.Client, limit int, period time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, period, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit policy for an unavailable store.
// Enforced responses carry X-RateLimit-Limit and X-RateLimit-Remaining, and a
// rejected request also gets Retry-After in seconds.
func RateLimitWithPolicy(rdb *redis.Client, limit int, period time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if !limitsEnforced() {
			return c.Next()
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		var (
			w   window
			err = errNoLimiterStore
		)
		if rdb != nil {
			w, err = countHit(c.UserContext(), rdb, "rl:"+resource+":ip:"+c.IP(), limit, period)
		}
		if err != nil {
			if policy == FailClosed {
				Logger.WarnContext(c.UserContext(), "rate limit store unavailable, failing closed",
					"resource", resource, "error", err.Error())
				return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
					"error": "rate limit unavailable",
				})
			}
			return c.Next()
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(w.remaining))
		if w.count > int64(limit) {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(math.Ceil(w.resetIn.Seconds()))))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "rate limit exceeded",
			})
		}
		return c.Next()
	}
}
