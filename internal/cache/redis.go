// Package cache holds the optional Redis layer: category caching, websocket
// tickets and read-through helpers. Every helper degrades to a miss when no
// client is configured.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"inkwell/internal/middleware"
	"inkwell/internal/observability"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

var client *redis.Client

// errorCounter counts failed commands per command name. redis.Nil is a miss,
// not a failure.
type errorCounter struct{}

func (errorCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

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

func countFailure(op string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrorRate.WithLabelValues(op).Inc()
	}
}

// parseRedisAddr accepts host:port or a redis:// / rediss:// URL.
func parseRedisAddr(addr string) (*redis.Options, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("empty redis address")
	}
	if !strings.Contains(addr, "://") {
		return &redis.Options{Addr: addr}, nil
	}
	opts, err := redis.ParseURL(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	return opts, nil
}

// InitRedis connects to Redis and installs the package client. An empty,
// malformed or unreachable address leaves the client nil and the process runs
// without Redis.
func InitRedis(addr string) *redis.Client {
	client = nil
	if strings.TrimSpace(addr) == "" {
		return nil
	}

	opts, err := parseRedisAddr(addr)
	if err != nil {
		middleware.Logger.Warn("Redis disabled", slog.String("error", err.Error()))
		return nil
	}
	c := redis.NewClient(opts)
	c.AddHook(errorCounter{})

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	if err := c.Ping(ctx).Err(); err != nil {
		middleware.Logger.Warn("Redis unreachable, running without it",
			slog.String("addr", opts.Addr), slog.String("error", err.Error()))
		_ = c.Close()
		return nil
	}

	middleware.Logger.Info("Redis connected", slog.String("addr", opts.Addr), slog.Int("db", opts.DB))
	client = c
	return client
}

// SetClient replaces the package client. Tests use it to plug in miniredis.
func SetClient(c *redis.Client) {
	if c != nil {
		c.AddHook(errorCounter{})
	}
	client = c
}

// GetClient returns the package client, or nil when Redis is off.
func GetClient() *redis.Client {
	return client
}
