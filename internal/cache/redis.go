// Package cache provides Redis caching utilities for the users service.
package cache

import (
	"context"
	"errors"
	"log"
	"net"
	"strings"
	"time"

	"usersvc/internal/observability"

	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// errorCounter bumps usersvc_redis_error_rate_total for failed commands.
// A cache miss (redis.Nil) is not an error.
type errorCounter struct{}

func countFailure(name string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrorRate.WithLabelValues(name).Inc()
	}
}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook {
	return func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := next(ctx, network, addr)
		countFailure("dial", err)
		return conn, err
	}
}

func (errorCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countFailure(cmd.Name(), err)
		return err
	}
}

func (errorCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countFailure("pipeline", err)
		return err
	}
}

// parseOptions accepts either a bare host:port or a redis:// URL.
func parseOptions(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("redis address is empty")
	}
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	return redis.ParseURL(addr)
}

// InitRedis connects the package client to addr. Token revocation and the
// user cache are disabled, and the service keeps running, when Redis is
// not configured or unreachable.
func InitRedis(addr string) {
	client = nil

	opts, err := parseOptions(addr)
	if err != nil {
		log.Printf("Redis disabled: %v", err)
		return
	}

	c := redis.NewClient(opts)
	c.AddHook(errorCounter{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		log.Printf("Redis disabled: ping %s: %v", opts.Addr, err)
		_ = c.Close()
		return
	}

	client = c
	log.Printf("Redis connected at %s", opts.Addr)
}

// GetClient returns the current Redis client instance, or nil when caching is disabled.
func GetClient() *redis.Client {
	return client
}

// SetClient swaps the package client. Tests use it to point at miniredis.
func SetClient(c *redis.Client) {
	client = c
}

// Close releases the Redis connection pool.
func Close() error {
	if client == nil {
		return nil
	}
	err := client.Close()
	client = nil
	return err
}
