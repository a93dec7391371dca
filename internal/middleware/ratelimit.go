package middleware

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strconv"
	"time"

	"usersvc/internal/cache"
	"usersvc/internal/models"

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

var errNoRateLimitStore = errors.New("rate limit store unavailable")

// RateLimitResult is the state of one caller's fixed window.
type RateLimitResult struct {
	Allowed   bool
	Remaining int
	ResetIn   time.Duration
}

// rateLimitExempt reports whether APP_ENV disables rate limiting.
func rateLimitExempt() bool {
	switch os.Getenv("APP_ENV") {
	case "", "test", "development":
		return true
	}
	return false
}

// CheckRateLimit counts one hit for caller on resource. The window starts
// with the first hit and resets when its key expires.
// Rate limiting is disabled when APP_ENV is empty, "test" or "development".
func CheckRateLimit(ctx context.Context, rdb *redis.Client, resource, caller string, limit int, window time.Duration) (RateLimitResult, error) {
	if rateLimitExempt() {
		return RateLimitResult{Allowed: true, Remaining: limit, ResetIn: window}, nil
	}
	if rdb == nil {
		return RateLimitResult{}, errNoRateLimitStore
	}

	key := cache.RateLimitKey(resource, caller)
	cnt, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return RateLimitResult{}, err
	}
	if cnt == 1 {
		if err := rdb.Expire(ctx, key, window).Err(); err != nil {
			return RateLimitResult{}, err
		}
	}

	ttl, err := rdb.TTL(ctx, key).Result()
	if err != nil || ttl < 0 {
		ttl = window
	}

	remaining := limit - int(cnt)
	if remaining < 0 {
		remaining = 0
	}
	return RateLimitResult{Allowed: cnt <= int64(limit), Remaining: remaining, ResetIn: ttl}, nil
}

// RateLimit returns a Fiber middleware enforcing `limit` requests per `window`.
// It keys by authenticated email when present, otherwise by remote IP.
func RateLimit(rdb *redis.Client, limit int, window time.Duration, name ...string) fiber.Handler {
	return RateLimitWithPolicy(rdb, limit, window, FailOpen, name...)
}

// RateLimitWithPolicy is RateLimit with an explicit policy for an unreachable store.
func RateLimitWithPolicy(rdb *redis.Client, limit int, window time.Duration, policy FailPolicy, name ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		caller := "ip:" + c.IP()
		if email := UserEmail(c); email != "" {
			caller = "user:" + email
		}

		resource := c.Path()
		if len(name) > 0 {
			resource = name[0]
		}

		res, err := CheckRateLimit(c.UserContext(), rdb, resource, caller, limit, window)
		if err != nil {
			if policy == FailOpen {
				return c.Next()
			}
			Logger.WarnContext(c.UserContext(), "rate limit fail-closed",
				slog.String("resource", resource),
				slog.String("error", err.Error()),
			)
			return models.RespondWithError(c, fiber.StatusServiceUnavailable,
				&models.AppError{Code: "RATE_LIMIT_UNAVAILABLE", Message: "Rate limiting is unavailable"})
		}

		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		if !res.Allowed {
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(int(res.ResetIn.Round(time.Second)/time.Second)))
			return models.RespondWithError(c, fiber.StatusTooManyRequests,
				&models.AppError{Code: "RATE_LIMITED", Message: "Too many requests, please try again later"})
		}
		return c.Next()
	}
}
