package auth

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// Lockout throttles brute-force login attempts with a redis counter
// per normalized identifier. Redis being unavailable degrades open:
// login keeps working, the throttle does not.
type Lockout struct {
	client *redis.Client
	logger *slog.Logger
	max    int
	window time.Duration
}

// NewLockout constructs a Lockout.
func NewLockout(client *redis.Client, logger *slog.Logger, max int, window time.Duration) *Lockout {
	return &Lockout{client: client, logger: logger, max: max, window: window}
}

// Locked reports whether the identifier exhausted its attempt budget.
func (l *Lockout) Locked(ctx context.Context, identifier string) bool {
	if l == nil || l.client == nil {
		return false
	}
	count, err := l.client.Get(ctx, l.key(identifier)).Int()
	if err != nil {
		if err != redis.Nil {
			l.logger.Warn("lockout read", slog.Any("error", err))
		}
		return false
	}
	return count >= l.max
}

// RecordFailure bumps the counter and starts the window on the first
// failure.
func (l *Lockout) RecordFailure(ctx context.Context, identifier string) {
	if l == nil || l.client == nil {
		return
	}
	key := l.key(identifier)
	pipe := l.client.TxPipeline()
	pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Warn("lockout record", slog.Any("error", err))
	}
}

// Reset clears the counter after a successful login.
func (l *Lockout) Reset(ctx context.Context, identifier string) {
	if l == nil || l.client == nil {
		return
	}
	if err := l.client.Del(ctx, l.key(identifier)).Err(); err != nil {
		l.logger.Warn("lockout reset", slog.Any("error", err))
	}
}

func (l *Lockout) key(identifier string) string {
	kind, value := NormalizeIdentifier(identifier)
	if kind == "" {
		value = identifier
	}
	return "login_attempts:" + value
}
