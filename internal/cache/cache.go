// README: Location Cache: short-lived key/value snapshots in front of the gateway.
package cache

import (
	"context"
	"time"
)

// Cache is a best-effort key/value store. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error

	// SetVersioned stores value at key unless fenceKey holds a version newer
	// than version. It reports whether the value was stored.
	SetVersioned(ctx context.Context, key, fenceKey string, value []byte, version int, ttl time.Duration) (bool, error)
	// Fence deletes key and raises fenceKey to at least version, so older
	// snapshots can no longer be stored at key.
	Fence(ctx context.Context, key, fenceKey string, version int, ttl time.Duration) error
}

// Nop never stores anything; every read is a miss.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]byte, bool, error)        { return nil, false, nil }
func (Nop) Set(context.Context, string, []byte, time.Duration) error { return nil }
func (Nop) Invalidate(context.Context, ...string) error              { return nil }

func (Nop) SetVersioned(context.Context, string, string, []byte, int, time.Duration) (bool, error) {
	return false, nil
}

func (Nop) Fence(context.Context, string, string, int, time.Duration) error { return nil }
