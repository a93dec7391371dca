package cache

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	UserEmailKeyPrefix = "user:email:%s"
	BlacklistKeyPrefix = "blacklist:%s"
	RateLimitKeyPrefix = "rl:%s:%s"
)

const (
	UserTTL = 5 * time.Minute
)

// UserEmailKey is the cache key for a user looked up by email.
func UserEmailKey(email string) string {
	return fmt.Sprintf(UserEmailKeyPrefix, strings.ToLower(email))
}

// BlacklistKey is the key marking a revoked token id.
func BlacklistKey(jti string) string {
	return fmt.Sprintf(BlacklistKeyPrefix, jti)
}

// RateLimitKey is the fixed-window counter for one resource and caller.
func RateLimitKey(resource, caller string) string {
	return fmt.Sprintf(RateLimitKeyPrefix, resource, caller)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUserEmail(ctx context.Context, email string) {
	Invalidate(ctx, UserEmailKey(email))
}
