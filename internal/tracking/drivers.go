package tracking

import (
	"context"
	"fmt"
	"strings"

	"tracker/internal/broker"
	"tracker/internal/cache"
	"tracker/internal/errs"
	"tracker/internal/modules/driver"
	"tracker/internal/modules/location"
	"tracker/internal/modules/order"
	"tracker/internal/types"
)

// authorizeDriver allows administrators and the driver itself.
func authorizeDriver(driverID types.ID, actor types.Actor) error {
	if actor.IsAdmin() || (actor.Role == types.RoleDriver && actor.ID == driverID) {
		return nil
	}
	return fmt.Errorf("actor %s may not act for driver %s: %w", actor.ID, driverID, errs.ErrUnauthorized)
}

// ReportPosition records a driver position. With an orderID the position is
// also published to that order's room; the order lock orders it with status
// events.
func (e *Engine) ReportPosition(ctx context.Context, driverID types.ID, orderID *types.ID, p types.Point, actor types.Actor) (*driver.Driver, error) {
	if err := authorizeDriver(driverID, actor); err != nil {
		return nil, err
	}
	p = types.NewPoint(p.Lat, p.Lng)
	if err := validPoint(p); err != nil {
		return nil, err
	}
	if orderID != nil {
		unlock := e.orderLocks.Lock(*orderID)
		defer unlock()
	}
	return e.reportPositionLocked(ctx, driverID, orderID, p)
}

func (e *Engine) reportPositionLocked(ctx context.Context, driverID types.ID, orderID *types.ID, p types.Point) (*driver.Driver, error) {
	if orderID != nil {
		o, err := e.readOrder(ctx, *orderID)
		if err != nil {
			return nil, err
		}
		if !o.HasDriver(driverID) {
			return nil, fmt.Errorf("driver %s is not assigned to order %s: %w", driverID, *orderID, errs.ErrUnauthorized)
		}
	}

	unlock := e.driverLocks.Lock(driverID)
	defer unlock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()

	d, err := e.gw.FindDriver(sctx, driverID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	d.MoveTo(p, now)
	if err := e.gw.SaveDriver(sctx, d); err != nil {
		return nil, err
	}
	if err := e.gw.AppendLocationHistory(sctx, location.Record{
		ID:         types.NewID(),
		DriverID:   driverID,
		OrderID:    orderID,
		Position:   p,
		RecordedAt: now,
	}); err != nil {
		return nil, err
	}

	e.cache.PutDriverPosition(ctx, cache.Position{DriverID: driverID, Point: p, Timestamp: now})
	if orderID != nil {
		e.publish(*orderID, broker.EventDriverLocation, map[string]any{
			"driverId": driverID,
			"lat":      num(p.Lat),
			"lng":      num(p.Lng),
		})
	}
	return d, nil
}

// SetAvailability toggles whether the driver can be offered new orders.
func (e *Engine) SetAvailability(ctx context.Context, driverID types.ID, available bool, actor types.Actor) (*driver.Driver, error) {
	if err := authorizeDriver(driverID, actor); err != nil {
		return nil, err
	}
	unlock := e.driverLocks.Lock(driverID)
	defer unlock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	d, err := e.gw.FindDriver(sctx, driverID)
	if err != nil {
		return nil, err
	}
	d.Available = available
	d.UpdatedAt = e.now()
	if err := e.gw.SaveDriver(sctx, d); err != nil {
		return nil, err
	}
	e.cache.InvalidateRoster(ctx)
	return d, nil
}

type NearbyDriver struct {
	*driver.Driver
	DistanceKm *float64 `json:"distanceKm,omitempty"`
}

// AvailableDrivers lists drivers open for assignment. With near set, drivers
// without a position or farther than radiusKm are left out and the rest are
// sorted nearest first. A non-positive radius means no limit.
func (e *Engine) AvailableDrivers(ctx context.Context, near *types.Point, radiusKm float64) ([]NearbyDriver, error) {
	roster, ok := e.cache.Roster(ctx)
	if !ok {
		var err error
		if roster, err = e.loadRoster(ctx); err != nil {
			return nil, err
		}
	}

	out := make([]NearbyDriver, 0, len(roster))
	for _, d := range roster {
		if near == nil {
			out = append(out, NearbyDriver{Driver: d})
			continue
		}
		if d.Position == nil {
			continue
		}
		km := location.DistanceKm(*near, *d.Position)
		if radiusKm > 0 && km > radiusKm {
			continue
		}
		out = append(out, NearbyDriver{Driver: d, DistanceKm: &km})
	}
	if near != nil {
		location.SortByDistance(out, func(n NearbyDriver) float64 { return *n.DistanceKm })
	}
	return out, nil
}

// RefreshRoster reloads the available-driver roster into the cache.
func (e *Engine) RefreshRoster(ctx context.Context) (int, error) {
	roster, err := e.loadRoster(ctx)
	return len(roster), err
}

func (e *Engine) loadRoster(ctx context.Context) ([]*driver.Driver, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	roster, err := e.gw.ListAvailableDrivers(sctx)
	if err != nil {
		return nil, err
	}
	e.cache.PutRoster(ctx, roster)
	return roster, nil
}

// LocationHistory lists a driver's positions, newest first.
func (e *Engine) LocationHistory(ctx context.Context, driverID types.ID, limit int, actor types.Actor) ([]location.Record, error) {
	if err := authorizeDriver(driverID, actor); err != nil {
		return nil, err
	}
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	return e.gw.ListLocationHistory(sctx, driverID, limit)
}

// DriverPosition returns the last known position, cache first. Admins and
// the driver itself may always read it; anyone else only through an order
// they can view that the driver is assigned to.
func (e *Engine) DriverPosition(ctx context.Context, driverID types.ID, orderID *types.ID, actor types.Actor) (*cache.Position, error) {
	if err := authorizeDriver(driverID, actor); err != nil {
		if orderID == nil {
			return nil, err
		}
		o, oerr := e.readOrder(ctx, *orderID)
		if oerr != nil {
			return nil, oerr
		}
		if cerr := order.CanView(o, actor); cerr != nil {
			return nil, cerr
		}
		if !o.HasDriver(driverID) {
			return nil, fmt.Errorf("driver %s is not assigned to order %s: %w", driverID, *orderID, errs.ErrUnauthorized)
		}
	}
	return e.driverPosition(ctx, driverID)
}

func (e *Engine) driverPosition(ctx context.Context, driverID types.ID) (*cache.Position, error) {
	if p, ok := e.cache.DriverPosition(ctx, driverID); ok {
		return p, nil
	}
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	d, err := e.gw.FindDriver(sctx, driverID)
	if err != nil {
		return nil, err
	}
	if d.Position == nil {
		return nil, nil
	}
	p := cache.Position{DriverID: d.ID, Point: *d.Position, Timestamp: d.UpdatedAt}
	e.cache.PutDriverPosition(ctx, p)
	return &p, nil
}

type RegisterDriverCmd struct {
	// ID and UserID default to the caller's id when a driver registers.
	ID           types.ID
	UserID       types.ID
	VehicleType  string
	VehiclePlate string
}

// RegisterDriver creates a driver profile. Drivers register themselves under
// their own id; admins may register any id. New drivers start available.
func (e *Engine) RegisterDriver(ctx context.Context, cmd RegisterDriverCmd, actor types.Actor) (*driver.Driver, error) {
	switch actor.Role {
	case types.RoleDriver:
		if (cmd.ID != "" && cmd.ID != actor.ID) || (cmd.UserID != "" && cmd.UserID != actor.ID) {
			return nil, fmt.Errorf("driver %s may only register itself: %w", actor.ID, errs.ErrUnauthorized)
		}
		cmd.ID, cmd.UserID = actor.ID, actor.ID
	case types.RoleAdmin:
		if cmd.ID == "" {
			cmd.ID = types.NewID()
		}
		if cmd.UserID == "" {
			cmd.UserID = cmd.ID
		}
	default:
		return nil, fmt.Errorf("role %q may not register drivers: %w", actor.Role, errs.ErrUnauthorized)
	}

	d := &driver.Driver{
		ID:           cmd.ID,
		UserID:       cmd.UserID,
		VehicleType:  strings.TrimSpace(cmd.VehicleType),
		VehiclePlate: strings.TrimSpace(cmd.VehiclePlate),
		Available:    true,
		UpdatedAt:    e.now(),
	}
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	if err := e.gw.CreateDriver(sctx, d); err != nil {
		return nil, err
	}
	e.cache.InvalidateRoster(ctx)
	e.logger.Info("driver registered", "driver_id", d.ID, "actor_id", actor.ID)
	return d, nil
}

// GetDriver returns a driver profile. The position is only shown to admins
// and the driver itself.
func (e *Engine) GetDriver(ctx context.Context, driverID types.ID, actor types.Actor) (*driver.Driver, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	d, err := e.gw.FindDriver(sctx, driverID)
	if err != nil {
		return nil, err
	}
	if authorizeDriver(driverID, actor) != nil {
		d.Position = nil
	}
	return d, nil
}

// ListDriverOrders returns the orders assigned to a driver, newest first.
func (e *Engine) ListDriverOrders(ctx context.Context, driverID types.ID, status order.Status, actor types.Actor) ([]*order.Order, error) {
	if err := authorizeDriver(driverID, actor); err != nil {
		return nil, err
	}
	sctx, cancel := e.storeCtx(ctx)
	_, err := e.gw.FindDriver(sctx, driverID)
	cancel()
	if err != nil {
		return nil, err
	}
	return e.listOrders(ctx, order.Filter{DriverID: driverID, Status: status})
}
