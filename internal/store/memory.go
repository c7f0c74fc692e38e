// README: In-memory Gateway for tests and for running without Postgres.
package store

import (
	"context"
	"sort"
	"sync"

	"tracker/internal/errs"
	"tracker/internal/modules/driver"
	"tracker/internal/modules/location"
	"tracker/internal/modules/order"
	"tracker/internal/types"
)

// Memory keeps clones so callers can never mutate stored state in place.
type Memory struct {
	mu      sync.RWMutex
	orders  map[types.ID]*order.Order
	drivers map[types.ID]*driver.Driver
	history []location.Record

	// FailWith, when set, is returned (wrapped as upstream) from every call.
	FailWith error
}

func NewMemory() *Memory {
	return &Memory{
		orders:  make(map[types.ID]*order.Order),
		drivers: make(map[types.ID]*driver.Driver),
	}
}

func (m *Memory) fail(op string) error {
	if m.FailWith != nil {
		return errs.Upstream(op, m.FailWith)
	}
	return nil
}

func (m *Memory) FindOrder(ctx context.Context, id types.ID) (*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("find order"); err != nil {
		return nil, err
	}
	o, ok := m.orders[id]
	if !ok {
		return nil, errs.NotFound("order", string(id))
	}
	return o.Clone(), nil
}

func (m *Memory) CreateOrder(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create order"); err != nil {
		return err
	}
	if _, ok := m.orders[o.ID]; ok {
		return errs.ErrConflict
	}
	m.orders[o.ID] = o.Clone()
	return nil
}

func (m *Memory) SaveOrder(ctx context.Context, o *order.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("save order"); err != nil {
		return err
	}
	return m.saveOrderLocked(o)
}

func (m *Memory) saveOrderLocked(o *order.Order) error {
	cur, ok := m.orders[o.ID]
	if !ok {
		return errs.NotFound("order", string(o.ID))
	}
	if cur.Version != o.Version {
		return errs.ErrConflict
	}
	o.Version++
	m.orders[o.ID] = o.Clone()
	return nil
}

func (m *Memory) ListOrders(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("list orders"); err != nil {
		return nil, err
	}
	out := make([]*order.Order, 0)
	for _, o := range m.orders {
		if f.Matches(o) {
			out = append(out, o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit := f.EffectiveLimit(); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) FindDriver(ctx context.Context, id types.ID) (*driver.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("find driver"); err != nil {
		return nil, err
	}
	d, ok := m.drivers[id]
	if !ok {
		return nil, errs.NotFound("driver", string(id))
	}
	return d.Clone(), nil
}

func (m *Memory) CreateDriver(ctx context.Context, d *driver.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("create driver"); err != nil {
		return err
	}
	if _, ok := m.drivers[d.ID]; ok {
		return errs.ErrConflict
	}
	for _, cur := range m.drivers {
		if cur.UserID == d.UserID {
			return errs.ErrConflict
		}
	}
	m.drivers[d.ID] = d.Clone()
	return nil
}

func (m *Memory) SaveDriver(ctx context.Context, d *driver.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("save driver"); err != nil {
		return err
	}
	if _, ok := m.drivers[d.ID]; !ok {
		return errs.NotFound("driver", string(d.ID))
	}
	m.drivers[d.ID] = d.Clone()
	return nil
}

func (m *Memory) ListAvailableDrivers(ctx context.Context) ([]*driver.Driver, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("list available drivers"); err != nil {
		return nil, err
	}
	var out []*driver.Driver
	for _, d := range m.drivers {
		if d.Available {
			out = append(out, d.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}

func (m *Memory) AssignDriver(ctx context.Context, o *order.Order, d *driver.Driver) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("assign driver"); err != nil {
		return err
	}
	cur, ok := m.drivers[d.ID]
	if !ok {
		return errs.NotFound("driver", string(d.ID))
	}
	if !cur.Available {
		return errs.ErrDriverUnavailable
	}
	if err := m.saveOrderLocked(o); err != nil {
		return err
	}
	m.drivers[d.ID] = d.Clone()
	return nil
}

func (m *Memory) AppendLocationHistory(ctx context.Context, r location.Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("append location history"); err != nil {
		return err
	}
	m.history = append(m.history, r)
	return nil
}

func (m *Memory) ListLocationHistory(ctx context.Context, driverID types.ID, limit int) ([]location.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.fail("list location history"); err != nil {
		return nil, err
	}
	limit = location.ClampLimit(limit)
	var out []location.Record
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		if m.history[i].DriverID == driverID {
			out = append(out, m.history[i])
		}
	}
	return out, nil
}

var (
	_ Gateway = (*Memory)(nil)
	_ Gateway = (*Postgres)(nil)
)
