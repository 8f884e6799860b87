package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "readar:ratelimit"
	redisTimeout  = 2 * time.Second
)

// windowCounter bumps the counter for one window and arms its expiry on the
// first hit, in a single round trip
var windowCounter = redis.NewScript(`
local hits = redis.call("INCR", KEYS[1])
if hits == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return hits
`)

// FixedWindowLimiter counts requests per client IP in fixed windows kept in
// Redis. Every API instance pointed at the same Redis shares one quota.
type FixedWindowLimiter struct {
	limit  int
	window time.Duration
	prefix string

	client *redis.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisFixedWindowLimiter allows limit requests per window for each key.
// redisURL is a redis:// or rediss:// URL; an empty prefix uses
// "readar:ratelimit".
func NewRedisFixedWindowLimiter(redisURL, prefix string, limit int, window time.Duration) (*FixedWindowLimiter, error) {
	if limit <= 0 || window <= 0 {
		return nil, errors.New("rate limiter requires positive limit and window")
	}
	redisURL = strings.TrimSpace(redisURL)
	if redisURL == "" {
		return nil, errors.New("rate limiter redis url is required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = defaultPrefix
	}

	return &FixedWindowLimiter{
		limit:  limit,
		window: window,
		prefix: prefix,
		client: redis.NewClient(opts),
		logger: slog.Default().With("component", "ratelimit"),
		now:    time.Now,
	}, nil
}

// Allow records one request for key and reports whether it fits the
// current window. An unreachable Redis denies the request.
func (l *FixedWindowLimiter) Allow(key string) bool {
	if l == nil {
		return false
	}

	redisKey := l.windowKey(key, l.now())

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	hits, err := windowCounter.Run(ctx, l.client, []string{redisKey}, l.window.Milliseconds()).Int64()
	if err != nil {
		l.logger.Warn("rate limit check failed, denying request", "key", redisKey, "error", err)
		return false
	}
	return hits <= int64(l.limit)
}

// windowKey names the counter for key in the window containing at,
// e.g. readar:ratelimit:10.0.0.1:28928160
func (l *FixedWindowLimiter) windowKey(key string, at time.Time) string {
	if key = strings.TrimSpace(key); key == "" {
		key = "unknown"
	}
	slot := at.UTC().UnixMilli() / l.window.Milliseconds()
	return fmt.Sprintf("%s:%s:%d", l.prefix, key, slot)
}

// Close releases the Redis connection pool
func (l *FixedWindowLimiter) Close() error {
	return l.client.Close()
}
