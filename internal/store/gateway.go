// README: Persistence Gateway: durable source of truth for orders, drivers and location history.
package store

import (
	"context"

	"tracker/internal/modules/driver"
	"tracker/internal/modules/location"
	"tracker/internal/modules/order"
	"tracker/internal/types"
)

// Gateway is the durable store. Implementations return errors carrying
// errs.ErrNotFound, errs.ErrConflict or errs.ErrUpstreamUnavailable.
type Gateway interface {
	FindOrder(ctx context.Context, id types.ID) (*order.Order, error)
	CreateOrder(ctx context.Context, o *order.Order) error
	// SaveOrder persists o if nobody saved it since it was read and bumps
	// o.Version on success.
	SaveOrder(ctx context.Context, o *order.Order) error
	// ListOrders returns orders matching f, newest first.
	ListOrders(ctx context.Context, f order.Filter) ([]*order.Order, error)

	FindDriver(ctx context.Context, id types.ID) (*driver.Driver, error)
	CreateDriver(ctx context.Context, d *driver.Driver) error
	SaveDriver(ctx context.Context, d *driver.Driver) error
	ListAvailableDrivers(ctx context.Context) ([]*driver.Driver, error)

	// AssignDriver writes the assigned order and the now-unavailable driver
	// atomically.
	AssignDriver(ctx context.Context, o *order.Order, d *driver.Driver) error

	AppendLocationHistory(ctx context.Context, r location.Record) error
	ListLocationHistory(ctx context.Context, driverID types.ID, limit int) ([]location.Record, error)
}
