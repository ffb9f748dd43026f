package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// ErrLockHeld is returned when someone else holds the lock.
var ErrLockHeld = errors.New("lock is held")

const lockPrefix = "game-lock:"

// Locker hands out per-session locks that expire after ttl, so a crashed
// holder cannot block a session forever.
type Locker struct {
	kv     KV
	ttl    time.Duration
	logger *slog.Logger
}

func NewLocker(kv KV, ttl time.Duration, logger *slog.Logger) *Locker {
	return &Locker{kv: kv, ttl: ttl, logger: logger}
}

// Acquire takes the lock for name. The returned func releases it, and only
// deletes the lock if it is still ours.
func (l *Locker) Acquire(ctx context.Context, name string) (func(), error) {
	key := lockPrefix + name
	token := uuid.NewString()

	ok, err := l.kv.SetNX(ctx, key, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	release := func() {
		// The caller's context may already be cancelled.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		released, err := l.kv.CompareAndDelete(ctx, key, token)
		if err != nil {
			l.logger.Error("Failed to release lock", "lock", key, "error", err)
			return
		}
		if !released {
			l.logger.Warn("Lock expired before release", "lock", key)
		}
	}
	return release, nil
}
