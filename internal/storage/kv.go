package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by KV.Get when the key is absent or expired.
var ErrNotFound = errors.New("key not found")

// KV is the key-value port every store in this package is built on.
// A ttl of zero means the key never expires.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Del(ctx context.Context, key string) error

	// SetNX writes value only if key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// CompareAndDelete removes key only while it still holds value.
	CompareAndDelete(ctx context.Context, key, value string) (bool, error)

	Ping(ctx context.Context) error
	Close() error
}
