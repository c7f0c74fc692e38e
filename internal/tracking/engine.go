// README: Tracking Engine: coordinates gateway, cache, broker and state machine per order.
package tracking

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"tracker/internal/broker"
	"tracker/internal/cache"
	"tracker/internal/modules/order"
	"tracker/internal/modules/pricing"
	"tracker/internal/store"
	"tracker/internal/types"
)

const DefaultStoreTimeout = 3 * time.Second

type Options struct {
	// StoreTimeout bounds every gateway call.
	StoreTimeout time.Duration
	// DistanceTimeout bounds the route estimate made at order creation.
	DistanceTimeout time.Duration
	Now             func() time.Time
}

type Deps struct {
	Gateway  store.Gateway
	Cache    *cache.Locations
	Broker   *broker.Broker
	Distance Distance
	Pricing  *pricing.Service
	Payments Payments
	Logger   *slog.Logger
}

type Engine struct {
	gw       store.Gateway
	cache    *cache.Locations
	broker   *broker.Broker
	distance Distance
	pricing  *pricing.Service
	payments Payments
	logger   *slog.Logger
	opts     Options

	orderLocks  *keyedMutex
	driverLocks *keyedMutex
}

func New(deps Deps, opts Options) *Engine {
	if opts.StoreTimeout <= 0 {
		opts.StoreTimeout = DefaultStoreTimeout
	}
	if opts.DistanceTimeout <= 0 {
		opts.DistanceTimeout = opts.StoreTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewLocations(cache.Nop{}, deps.Logger)
	}
	if deps.Broker == nil {
		deps.Broker = broker.New(deps.Logger)
	}
	if deps.Distance == nil {
		deps.Distance = Haversine{}
	}
	if deps.Pricing == nil {
		deps.Pricing = pricing.NewService(pricing.DefaultRate)
	}
	return &Engine{
		gw:          deps.Gateway,
		cache:       deps.Cache,
		broker:      deps.Broker,
		distance:    deps.Distance,
		pricing:     deps.Pricing,
		payments:    deps.Payments,
		logger:      deps.Logger.With("component", "tracking"),
		opts:        opts,
		orderLocks:  newKeyedMutex(),
		driverLocks: newKeyedMutex(),
	}
}

func (e *Engine) Broker() *broker.Broker { return e.broker }

func (e *Engine) now() time.Time { return e.opts.Now().UTC() }

func (e *Engine) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.opts.StoreTimeout)
}

func (e *Engine) publish(orderID types.ID, t broker.EventType, payload map[string]any) {
	n := e.broker.Publish(orderID, broker.Event{
		Type:      t,
		OrderID:   orderID,
		Payload:   payload,
		Timestamp: e.now(),
	})
	e.logger.Debug("event published", "order_id", orderID, "event", t, "observers", n)
}

func statusPayload(o *order.Order) map[string]any {
	p := map[string]any{"status": o.Status}
	if o.DriverID != nil {
		p["driverId"] = *o.DriverID
	}
	return p
}

func num(d decimal.Decimal) json.Number {
	return json.Number(d.String())
}
