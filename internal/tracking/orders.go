package tracking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"tracker/internal/broker"
	"tracker/internal/errs"
	"tracker/internal/modules/order"
	"tracker/internal/types"
)

type CreateOrderCmd struct {
	CustomerID      types.ID
	PickupAddress   string
	DeliveryAddress string
	Pickup          types.Point
	Delivery        types.Point
	Notes           string
}

func (c CreateOrderCmd) validate() error {
	if strings.TrimSpace(c.PickupAddress) == "" || strings.TrimSpace(c.DeliveryAddress) == "" {
		return fmt.Errorf("pickup and delivery addresses are required: %w", errs.ErrBadRequest)
	}
	for _, p := range []types.Point{c.Pickup, c.Delivery} {
		if err := validPoint(p); err != nil {
			return err
		}
	}
	return nil
}

var (
	maxLat = decimal.NewFromInt(90)
	maxLng = decimal.NewFromInt(180)
)

func validPoint(p types.Point) error {
	if p.Lat.Abs().GreaterThan(maxLat) || p.Lng.Abs().GreaterThan(maxLng) {
		return fmt.Errorf("coordinates %s,%s out of range: %w", p.Lat, p.Lng, errs.ErrBadRequest)
	}
	return nil
}

// GetOrder serves the order from the cache when possible, falling back to
// the gateway and repopulating the cache.
func (e *Engine) GetOrder(ctx context.Context, orderID types.ID, actor types.Actor) (*order.Order, error) {
	o, err := e.readOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.CanView(o, actor); err != nil {
		return nil, err
	}
	return o, nil
}

// FetchOrder is GetOrder without the cache, for callers that must decide on
// the committed state.
func (e *Engine) FetchOrder(ctx context.Context, orderID types.ID, actor types.Actor) (*order.Order, error) {
	o, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := order.CanView(o, actor); err != nil {
		return nil, err
	}
	return o, nil
}

// ListOrders returns the orders the actor may see, newest first: customers
// get their own, drivers the ones assigned to them and admins all of them.
// An empty status matches every status.
func (e *Engine) ListOrders(ctx context.Context, status order.Status, actor types.Actor) ([]*order.Order, error) {
	f := order.Filter{Status: status}
	switch actor.Role {
	case types.RoleAdmin:
	case types.RoleCustomer:
		f.CustomerID = actor.ID
	case types.RoleDriver:
		f.DriverID = actor.ID
	default:
		return nil, fmt.Errorf("role %q may not list orders: %w", actor.Role, errs.ErrUnauthorized)
	}
	return e.listOrders(ctx, f)
}

func (e *Engine) listOrders(ctx context.Context, f order.Filter) ([]*order.Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", f.Status, errs.ErrBadRequest)
	}
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	return e.gw.ListOrders(sctx, f)
}

func (e *Engine) readOrder(ctx context.Context, orderID types.ID) (*order.Order, error) {
	if o, ok := e.cache.Order(ctx, orderID); ok {
		return o, nil
	}
	o, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	e.cache.PutOrder(ctx, o)
	return o, nil
}

// loadOrder always reads the gateway; mutations must start from it.
func (e *Engine) loadOrder(ctx context.Context, orderID types.ID) (*order.Order, error) {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	return e.gw.FindOrder(sctx, orderID)
}

func (e *Engine) saveOrder(ctx context.Context, o *order.Order) error {
	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	return e.gw.SaveOrder(sctx, o)
}

// CreateOrder prices and persists a new order, then opens a payment intent.
// If the intent cannot be opened the order is cancelled again.
func (e *Engine) CreateOrder(ctx context.Context, cmd CreateOrderCmd, actor types.Actor) (*order.Order, *PaymentIntent, error) {
	switch {
	case actor.Role == types.RoleCustomer:
		cmd.CustomerID = actor.ID
	case actor.IsAdmin():
		if cmd.CustomerID == "" {
			return nil, nil, fmt.Errorf("customer id is required: %w", errs.ErrBadRequest)
		}
	default:
		return nil, nil, fmt.Errorf("actor %s may not create orders: %w", actor.ID, errs.ErrUnauthorized)
	}
	cmd.Pickup = types.NewPoint(cmd.Pickup.Lat, cmd.Pickup.Lng)
	cmd.Delivery = types.NewPoint(cmd.Delivery.Lat, cmd.Delivery.Lng)
	if err := cmd.validate(); err != nil {
		return nil, nil, err
	}

	km := e.estimateDistance(ctx, cmd.Pickup, cmd.Delivery)
	now := e.now()
	o := &order.Order{
		ID:              types.NewID(),
		CustomerID:      cmd.CustomerID,
		PickupAddress:   cmd.PickupAddress,
		DeliveryAddress: cmd.DeliveryAddress,
		Pickup:          cmd.Pickup,
		Delivery:        cmd.Delivery,
		Status:          order.StatusCreated,
		Amount:          e.pricing.Quote(km),
		DistanceKm:      km,
		Notes:           cmd.Notes,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	sctx, cancel := e.storeCtx(ctx)
	err := e.gw.CreateOrder(sctx, o)
	cancel()
	if err != nil {
		return nil, nil, err
	}
	e.logger.Info("order created", "order_id", o.ID, "customer_id", o.CustomerID, "amount", o.Amount.Amount.String())

	if e.payments == nil {
		return o, nil, nil
	}
	intent, err := e.payments.CreateIntent(ctx, o.ID, o.Amount)
	if err == nil {
		return o, intent, nil
	}

	e.logger.Error("payment intent failed, cancelling order", "order_id", o.ID, "error", err)
	cancelled, terr := order.Transition(o, order.StatusCancelled, types.System, e.now())
	if terr == nil {
		terr = e.saveOrder(ctx, cancelled)
	}
	if terr != nil {
		e.logger.Error("compensating cancel failed", "order_id", o.ID, "error", terr)
	}
	return nil, nil, errs.Upstream("create payment intent", err)
}

func (e *Engine) estimateDistance(ctx context.Context, from, to types.Point) decimal.Decimal {
	dctx, cancel := context.WithTimeout(ctx, e.opts.DistanceTimeout)
	defer cancel()
	km, err := e.distance.DistanceKm(dctx, from, to)
	if err != nil {
		e.logger.Warn("distance estimate failed, using straight line", "error", err)
		km, _ = Haversine{}.DistanceKm(ctx, from, to)
	}
	return km
}

// ChangeStatus applies one transition on behalf of actor. Terminal statuses
// release the assigned driver.
func (e *Engine) ChangeStatus(ctx context.Context, orderID types.ID, to order.Status, actor types.Actor) (*order.Order, error) {
	if !to.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", to, errs.ErrBadRequest)
	}
	unlock := e.orderLocks.Lock(orderID)
	defer unlock()

	o, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, err := order.Transition(o, to, actor, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.commitStatus(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// CompleteDelivery walks an order forward to delivered as the system actor,
// validating every hop, and publishes a single terminal status event.
func (e *Engine) CompleteDelivery(ctx context.Context, orderID types.ID) (*order.Order, error) {
	unlock := e.orderLocks.Lock(orderID)
	defer unlock()

	o, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, err := order.Advance(o, order.StatusDelivered, types.System, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.commitStatus(ctx, next); err != nil {
		return nil, err
	}
	return next, nil
}

// commitStatus persists next and fans the change out. Callers hold the order
// lock.
func (e *Engine) commitStatus(ctx context.Context, next *order.Order) error {
	if err := e.saveOrder(ctx, next); err != nil {
		return err
	}
	terminal := order.IsTerminal(next.Status)
	if terminal && next.DriverID != nil {
		if err := e.setDriverAvailable(ctx, *next.DriverID, true); err != nil {
			e.logger.Error("releasing driver failed", "order_id", next.ID, "driver_id", *next.DriverID, "error", err)
		}
	}

	e.cache.InvalidateOrder(ctx, next.ID, next.Version)
	if terminal {
		e.cache.InvalidateRoster(ctx)
	}
	e.publish(next.ID, broker.EventStatus, statusPayload(next))
	e.logger.Info("order status changed", "order_id", next.ID, "status", next.Status)
	return nil
}

func (e *Engine) setDriverAvailable(ctx context.Context, driverID types.ID, available bool) error {
	unlock := e.driverLocks.Lock(driverID)
	defer unlock()

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	d, err := e.gw.FindDriver(sctx, driverID)
	if err != nil {
		return err
	}
	if d.Available == available {
		return nil
	}
	d.Available = available
	d.UpdatedAt = e.now()
	return e.gw.SaveDriver(sctx, d)
}

// AssignDriver binds an available driver to a created order. Administrators
// only.
func (e *Engine) AssignDriver(ctx context.Context, orderID, driverID types.ID, actor types.Actor) (*order.Order, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("actor %s may not assign drivers: %w", actor.ID, errs.ErrUnauthorized)
	}
	unlock := e.orderLocks.Lock(orderID)
	defer unlock()
	unlockDriver := e.driverLocks.Lock(driverID)
	defer unlockDriver()

	o, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	sctx, cancel := e.storeCtx(ctx)
	defer cancel()
	d, err := e.gw.FindDriver(sctx, driverID)
	if errors.Is(err, errs.ErrNotFound) {
		d = nil
	} else if err != nil {
		return nil, err
	}

	next, busy, err := order.AssignDriver(o, d, actor, e.now())
	if err != nil {
		return nil, err
	}
	if err := e.gw.AssignDriver(sctx, next, busy); err != nil {
		return nil, err
	}

	e.cache.InvalidateOrder(ctx, orderID, next.Version)
	e.cache.InvalidateRoster(ctx)
	e.publish(orderID, broker.EventStatus, statusPayload(next))
	e.logger.Info("driver assigned", "order_id", orderID, "driver_id", driverID)
	return next, nil
}

// ResetOrder moves the driver back to pickup and rewinds the order to
// assigned. Administrators only.
func (e *Engine) ResetOrder(ctx context.Context, orderID types.ID, actor types.Actor) (*order.Order, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("actor %s may not reset orders: %w", actor.ID, errs.ErrUnauthorized)
	}
	unlock := e.orderLocks.Lock(orderID)
	defer unlock()

	o, err := e.loadOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	next, err := order.Rewind(o, actor, e.now())
	if err != nil {
		return nil, err
	}
	driverID := *next.DriverID

	if _, err := e.reportPositionLocked(ctx, driverID, &orderID, next.Pickup); err != nil {
		return nil, err
	}
	if err := e.saveOrder(ctx, next); err != nil {
		return nil, err
	}
	if order.IsTerminal(o.Status) {
		if err := e.setDriverAvailable(ctx, driverID, false); err != nil {
			return nil, err
		}
		e.cache.InvalidateRoster(ctx)
	}

	e.cache.InvalidateOrder(ctx, orderID, next.Version)
	payload := statusPayload(next)
	payload["reset"] = true
	e.publish(orderID, broker.EventStatus, payload)
	e.logger.Info("order reset", "order_id", orderID)
	return next, nil
}
