// README: Typed cache facade: key naming, TTL policy and JSON encoding for tracking snapshots.
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"tracker/internal/modules/driver"
	"tracker/internal/modules/order"
	"tracker/internal/types"
)

const (
	OrderTTL          = 600 * time.Second
	DriverLocationTTL = 300 * time.Second
	RosterTTL         = 60 * time.Second

	rosterKey = "drivers:available"
)

func OrderKey(id types.ID) string          { return "order:" + string(id) }
func OrderFenceKey(id types.ID) string     { return "order:" + string(id) + ":fence" }
func DriverLocationKey(id types.ID) string { return "driver:location:" + string(id) }
func RosterKey() string                    { return rosterKey }

// Position is the cached last known position of a driver.
type Position struct {
	DriverID  types.ID    `json:"driverId"`
	Point     types.Point `json:"position"`
	Timestamp time.Time   `json:"timestamp"`
}

// Locations never surfaces cache failures: they are logged and reads fall
// back to a miss so the gateway stays authoritative.
type Locations struct {
	cache  Cache
	logger *slog.Logger
}

func NewLocations(c Cache, logger *slog.Logger) *Locations {
	if c == nil {
		c = Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locations{cache: c, logger: logger.With("component", "location_cache")}
}

func (l *Locations) Order(ctx context.Context, id types.ID) (*order.Order, bool) {
	var o order.Order
	if !l.get(ctx, OrderKey(id), &o) {
		return nil, false
	}
	return &o, true
}

// PutOrder caches o unless a write newer than o.Version has already been
// committed and invalidated. A reader that raced a writer therefore cannot
// put the older snapshot back.
func (l *Locations) PutOrder(ctx context.Context, o *order.Order) {
	b, err := json.Marshal(o)
	if err != nil {
		l.logger.Error("cache encode failed", "key", OrderKey(o.ID), "error", err)
		return
	}
	stored, err := l.cache.SetVersioned(ctx, OrderKey(o.ID), OrderFenceKey(o.ID), b, o.Version, OrderTTL)
	if err != nil {
		l.logger.Warn("cache set failed", "key", OrderKey(o.ID), "error", err)
		return
	}
	if !stored {
		l.logger.Debug("stale order snapshot not cached", "order_id", o.ID, "version", o.Version)
	}
}

// InvalidateOrder drops the cached order after a write that committed
// version.
func (l *Locations) InvalidateOrder(ctx context.Context, id types.ID, version int) {
	if err := l.cache.Fence(ctx, OrderKey(id), OrderFenceKey(id), version, OrderTTL); err != nil {
		l.logger.Warn("cache invalidate failed", "key", OrderKey(id), "error", err)
	}
}

func (l *Locations) DriverPosition(ctx context.Context, id types.ID) (*Position, bool) {
	var p Position
	if !l.get(ctx, DriverLocationKey(id), &p) {
		return nil, false
	}
	return &p, true
}

func (l *Locations) PutDriverPosition(ctx context.Context, p Position) {
	l.set(ctx, DriverLocationKey(p.DriverID), p, DriverLocationTTL)
}

func (l *Locations) Roster(ctx context.Context) ([]*driver.Driver, bool) {
	var ds []*driver.Driver
	if !l.get(ctx, rosterKey, &ds) {
		return nil, false
	}
	return ds, true
}

func (l *Locations) PutRoster(ctx context.Context, ds []*driver.Driver) {
	if ds == nil {
		ds = []*driver.Driver{}
	}
	l.set(ctx, rosterKey, ds, RosterTTL)
}

func (l *Locations) InvalidateRoster(ctx context.Context) {
	l.invalidate(ctx, rosterKey)
}

func (l *Locations) get(ctx context.Context, key string, dst any) bool {
	b, ok, err := l.cache.Get(ctx, key)
	if err != nil {
		l.logger.Warn("cache get failed", "key", key, "error", err)
		return false
	}
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, dst); err != nil {
		l.logger.Warn("cache entry undecodable", "key", key, "error", err)
		l.invalidate(ctx, key)
		return false
	}
	return true
}

func (l *Locations) set(ctx context.Context, key string, v any, ttl time.Duration) {
	b, err := json.Marshal(v)
	if err != nil {
		l.logger.Error("cache encode failed", "key", key, "error", err)
		return
	}
	if err := l.cache.Set(ctx, key, b, ttl); err != nil {
		l.logger.Warn("cache set failed", "key", key, "error", err)
	}
}

func (l *Locations) invalidate(ctx context.Context, keys ...string) {
	if err := l.cache.Invalidate(ctx, keys...); err != nil {
		l.logger.Warn("cache invalidate failed", "keys", keys, "error", err)
	}
}
