package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// AttemptLimiter counts attempts per key within a rolling window.
// Allow records one attempt and reports whether the key is still
// within its budget. Backend failures degrade open: an unreachable
// counter must not lock everyone out.
type AttemptLimiter interface {
	Allow(ctx context.Context, key string) bool
}

func newAttemptLimiter(rdb *redis.Client, logger *slog.Logger, prefix string, limit int, window time.Duration) AttemptLimiter {
	if rdb != nil {
		return &redisLimiter{rdb: rdb, logger: logger, prefix: prefix, limit: limit, window: window}
	}
	return &memoryLimiter{attempts: make(map[string][]time.Time), limit: limit, window: window}
}

type redisLimiter struct {
	rdb    *redis.Client
	logger *slog.Logger
	prefix string
	limit  int
	window time.Duration
}

func (l *redisLimiter) Allow(ctx context.Context, key string) bool {
	k := l.prefix + ":" + key
	n, err := l.rdb.Incr(ctx, k).Result()
	if err != nil {
		l.logger.Warn("rate limiter unavailable", "key", k, "error", err)
		return true
	}
	if n == 1 {
		if err := l.rdb.Expire(ctx, k, l.window).Err(); err != nil {
			l.logger.Warn("rate limiter expire failed", "key", k, "error", err)
		}
	}
	return n <= int64(l.limit)
}

type memoryLimiter struct {
	mu        sync.Mutex
	attempts  map[string][]time.Time
	limit     int
	window    time.Duration
	nextSweep time.Time
}

func (l *memoryLimiter) Allow(_ context.Context, key string) bool {
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	// Once per window, drop keys whose every attempt has expired.
	// Without this the map keeps one entry per actor ever seen.
	if now.After(l.nextSweep) {
		for k, ts := range l.attempts {
			if !ts[len(ts)-1].After(cutoff) {
				delete(l.attempts, k)
			}
		}
		l.nextSweep = now.Add(l.window)
	}

	kept := l.attempts[key][:0]
	for _, t := range l.attempts[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	kept = append(kept, now)
	l.attempts[key] = kept

	return len(kept) <= l.limit
}
