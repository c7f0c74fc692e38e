// README: Movement Simulator: drives an assigned order from pickup to delivery on a timer.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"tracker/internal/errs"
	"tracker/internal/modules/driver"
	"tracker/internal/modules/location"
	"tracker/internal/modules/order"
	"tracker/internal/types"
)

const (
	DefaultInterval = 3 * time.Second
	DefaultSteps    = 20
)

// Tracker is the slice of the tracking engine the simulator drives. Positions
// go through the same path a real device uses.
type Tracker interface {
	// FetchOrder reads the committed order, bypassing any cache.
	FetchOrder(ctx context.Context, orderID types.ID, actor types.Actor) (*order.Order, error)
	ReportPosition(ctx context.Context, driverID types.ID, orderID *types.ID, p types.Point, actor types.Actor) (*driver.Driver, error)
	CompleteDelivery(ctx context.Context, orderID types.ID) (*order.Order, error)
	ResetOrder(ctx context.Context, orderID types.ID, actor types.Actor) (*order.Order, error)
}

type Options struct {
	Interval time.Duration
	Steps    int
}

// Run describes a started simulation.
type Run struct {
	OrderID    types.ID      `json:"orderId"`
	DriverID   types.ID      `json:"driverId"`
	TotalSteps int           `json:"totalSteps"`
	Interval   time.Duration `json:"-"`
	StartedAt  time.Time     `json:"startedAt"`
}

type run struct {
	Run
	cancel context.CancelFunc
	done   chan struct{}
}

type Simulator struct {
	tracker Tracker
	opts    Options
	logger  *slog.Logger

	// startMu serializes Start so replacing a run and validating the order
	// happen as one step.
	startMu sync.Mutex

	mu   sync.Mutex
	runs map[types.ID]*run
}

func New(tracker Tracker, opts Options, logger *slog.Logger) *Simulator {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Steps <= 0 {
		opts.Steps = DefaultSteps
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Simulator{
		tracker: tracker,
		opts:    opts,
		logger:  logger.With("component", "simulator"),
		runs:    make(map[types.ID]*run),
	}
}

// Start launches a run for the order, replacing any run already in progress.
// The previous run has fully stopped before the order is checked, so a run
// that just delivered the order makes Start fail instead of restarting it.
func (s *Simulator) Start(ctx context.Context, orderID types.ID, actor types.Actor) (Run, error) {
	if !actor.IsAdmin() {
		return Run{}, fmt.Errorf("actor %s may not simulate orders: %w", actor.ID, errs.ErrUnauthorized)
	}
	s.startMu.Lock()
	defer s.startMu.Unlock()

	s.mu.Lock()
	prev := s.runs[orderID]
	delete(s.runs, orderID)
	s.mu.Unlock()
	if prev != nil {
		prev.cancel()
		<-prev.done
		s.logger.Info("previous simulation replaced", "order_id", orderID)
	}

	o, err := s.tracker.FetchOrder(ctx, orderID, actor)
	if err != nil {
		return Run{}, err
	}
	if o.DriverID == nil || order.IsTerminal(o.Status) {
		return Run{}, fmt.Errorf("order %s is %s: %w", orderID, o.Status, errs.ErrOrderNotAssignable)
	}

	// The run outlives the request that started it.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		Run: Run{
			OrderID:    orderID,
			DriverID:   *o.DriverID,
			TotalSteps: s.opts.Steps + 1,
			Interval:   s.opts.Interval,
			StartedAt:  time.Now().UTC(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}
	s.mu.Lock()
	s.runs[orderID] = r
	s.mu.Unlock()

	waypoints := location.Waypoints(o.Pickup, o.Delivery, s.opts.Steps)
	go s.loop(runCtx, r, waypoints)

	s.logger.Info("simulation started", "order_id", orderID, "driver_id", r.DriverID, "steps", r.TotalSteps)
	return r.Run, nil
}

func (s *Simulator) loop(ctx context.Context, r *run, waypoints []types.Point) {
	defer func() {
		s.mu.Lock()
		if s.runs[r.OrderID] == r {
			delete(s.runs, r.OrderID)
		}
		s.mu.Unlock()
		close(r.done)
	}()

	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()

	orderID := r.OrderID
	for i, wp := range waypoints {
		if !wait(ctx, ticker) {
			return
		}
		if _, err := s.tracker.ReportPosition(ctx, r.DriverID, &orderID, wp, types.System); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("simulated position rejected", "order_id", orderID, "step", i, "error", err)
			if !errors.Is(err, errs.ErrUpstreamUnavailable) {
				return
			}
			continue
		}
		s.logger.Debug("simulated step", "order_id", orderID, "step", i, "lat", wp.Lat.String(), "lng", wp.Lng.String())
	}

	if !wait(ctx, ticker) {
		return
	}
	if _, err := s.tracker.CompleteDelivery(ctx, orderID); err != nil {
		if ctx.Err() == nil {
			s.logger.Error("simulated delivery failed", "order_id", orderID, "error", err)
		}
		return
	}
	s.logger.Info("simulation delivered", "order_id", orderID)
}

// wait blocks for the next tick and reports whether the run is still live.
func wait(ctx context.Context, ticker *time.Ticker) bool {
	select {
	case <-ctx.Done():
		return false
	case <-ticker.C:
		return ctx.Err() == nil
	}
}

// Stop cancels the order's run and waits for it to exit. It reports whether
// a run was active; stopping twice is harmless.
func (s *Simulator) Stop(orderID types.ID) bool {
	s.mu.Lock()
	r := s.runs[orderID]
	delete(s.runs, orderID)
	s.mu.Unlock()

	if r == nil {
		return false
	}
	r.cancel()
	<-r.done
	s.logger.Info("simulation stopped", "order_id", orderID)
	return true
}

// Reset stops any run and puts the order back to assigned with the driver at
// pickup.
func (s *Simulator) Reset(ctx context.Context, orderID types.ID, actor types.Actor) (*order.Order, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("actor %s may not reset orders: %w", actor.ID, errs.ErrUnauthorized)
	}
	s.Stop(orderID)
	return s.tracker.ResetOrder(ctx, orderID, actor)
}

func (s *Simulator) Active(orderID types.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.runs[orderID]
	return ok
}

func (s *Simulator) ActiveRuns() []Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Run, 0, len(s.runs))
	for _, r := range s.runs {
		out = append(out, r.Run)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderID < out[j].OrderID })
	return out
}

// Shutdown stops every run and waits for all of them.
func (s *Simulator) Shutdown() {
	s.mu.Lock()
	runs := s.runs
	s.runs = make(map[types.ID]*run)
	s.mu.Unlock()

	for _, r := range runs {
		r.cancel()
	}
	for _, r := range runs {
		<-r.done
	}
}
