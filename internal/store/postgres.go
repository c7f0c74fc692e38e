// README: Gateway implementation on Postgres via pgxpool; composes the module stores.
package store

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"tracker/internal/errs"
	"tracker/internal/modules/driver"
	"tracker/internal/modules/location"
	"tracker/internal/modules/order"
	"tracker/internal/types"
)

type Postgres struct {
	pool      *pgxpool.Pool
	orders    *order.Store
	drivers   *driver.Store
	locations *location.Store
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		pool:      pool,
		orders:    order.NewStore(pool),
		drivers:   driver.NewStore(pool),
		locations: location.NewStore(pool),
	}
}

func (p *Postgres) FindOrder(ctx context.Context, id types.ID) (*order.Order, error) {
	o, err := p.orders.Get(ctx, id)
	return o, errs.Upstream("find order", err)
}

func (p *Postgres) CreateOrder(ctx context.Context, o *order.Order) error {
	return errs.Upstream("create order", p.orders.Create(ctx, o))
}

func (p *Postgres) SaveOrder(ctx context.Context, o *order.Order) error {
	return errs.Upstream("save order", p.orders.Update(ctx, o))
}

func (p *Postgres) ListOrders(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	os, err := p.orders.List(ctx, f)
	return os, errs.Upstream("list orders", err)
}

func (p *Postgres) FindDriver(ctx context.Context, id types.ID) (*driver.Driver, error) {
	d, err := p.drivers.Get(ctx, id)
	return d, errs.Upstream("find driver", err)
}

func (p *Postgres) CreateDriver(ctx context.Context, d *driver.Driver) error {
	return errs.Upstream("create driver", p.drivers.Create(ctx, d))
}

func (p *Postgres) SaveDriver(ctx context.Context, d *driver.Driver) error {
	return errs.Upstream("save driver", p.drivers.Update(ctx, d))
}

func (p *Postgres) ListAvailableDrivers(ctx context.Context) ([]*driver.Driver, error) {
	ds, err := p.drivers.ListAvailable(ctx)
	return ds, errs.Upstream("list available drivers", err)
}

func (p *Postgres) AssignDriver(ctx context.Context, o *order.Order, d *driver.Driver) error {
	version := o.Version
	err := pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		// Lock the driver row so two orders cannot claim the same driver.
		current, err := driver.NewStore(tx).GetForUpdate(ctx, d.ID)
		if err != nil {
			return err
		}
		if !current.Available {
			return errs.ErrDriverUnavailable
		}
		if err := order.NewStore(tx).Update(ctx, o); err != nil {
			return err
		}
		return driver.NewStore(tx).Update(ctx, d)
	})
	if err != nil {
		// The rolled back update must not leave a bumped version behind.
		o.Version = version
	}
	return errs.Upstream("assign driver", err)
}

func (p *Postgres) AppendLocationHistory(ctx context.Context, r location.Record) error {
	return errs.Upstream("append location history", p.locations.Append(ctx, r))
}

func (p *Postgres) ListLocationHistory(ctx context.Context, driverID types.ID, limit int) ([]location.Record, error) {
	rs, err := p.locations.ListByDriver(ctx, driverID, limit)
	return rs, errs.Upstream("list location history", err)
}
