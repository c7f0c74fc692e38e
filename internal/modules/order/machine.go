// README: Pure order state machine: transition validation and actor authorization.
package order

import (
	"fmt"
	"time"

	"tracker/internal/errs"
	"tracker/internal/modules/driver"
	"tracker/internal/types"
)

// Authorize allows administrators and the driver currently assigned to o.
func Authorize(o *Order, actor types.Actor) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.Role == types.RoleDriver && o.HasDriver(actor.ID) {
		return nil
	}
	return fmt.Errorf("actor %s may not change order %s: %w", actor.ID, o.ID, errs.ErrUnauthorized)
}

// CanView allows the order's customer, its assigned driver and administrators.
func CanView(o *Order, actor types.Actor) error {
	switch {
	case actor.IsAdmin():
		return nil
	case actor.Role == types.RoleCustomer && o.CustomerID == actor.ID:
		return nil
	case actor.Role == types.RoleDriver && o.HasDriver(actor.ID):
		return nil
	}
	return fmt.Errorf("actor %s may not view order %s: %w", actor.ID, o.ID, errs.ErrUnauthorized)
}

// Transition returns a copy of o moved to status to. o itself is not modified.
func Transition(o *Order, to Status, actor types.Actor, now time.Time) (*Order, error) {
	if err := Authorize(o, actor); err != nil {
		return nil, err
	}
	if !CanTransition(o.Status, to) {
		return nil, fmt.Errorf("%s -> %s: %w", o.Status, to, errs.ErrInvalidTransition)
	}
	// Only AssignDriver may attach a driver, so no transition can reach a
	// driver-bearing status on an order that has none.
	if requiresDriver(to) && o.DriverID == nil {
		return nil, fmt.Errorf("%s -> %s needs a driver assignment: %w", o.Status, to, errs.ErrInvalidTransition)
	}
	next := o.Clone()
	next.Status = to
	next.UpdatedAt = now
	return next, nil
}

// Advance walks the forward path from the current status to target, applying
// Transition for every hop so each step is validated on its own.
func Advance(o *Order, target Status, actor types.Actor, now time.Time) (*Order, error) {
	from, to := pathIndex(o.Status), pathIndex(target)
	if from < 0 || to <= from {
		return nil, fmt.Errorf("%s -> %s: %w", o.Status, target, errs.ErrInvalidTransition)
	}
	cur := o
	for _, s := range forwardPath[from+1 : to+1] {
		next, err := Transition(cur, s, actor, now)
		if err != nil {
			return nil, err
		}
		cur = next
	}
	return cur, nil
}

// AssignDriver sets d on o and moves o to assigned. The returned driver is
// marked unavailable. Only administrators may assign; an order that is not
// created or a busy driver fails with ErrDriverUnavailable.
func AssignDriver(o *Order, d *driver.Driver, actor types.Actor, now time.Time) (*Order, *driver.Driver, error) {
	if !actor.IsAdmin() {
		return nil, nil, fmt.Errorf("actor %s may not assign drivers: %w", actor.ID, errs.ErrUnauthorized)
	}
	if o.Status != StatusCreated {
		return nil, nil, fmt.Errorf("order %s is %s: %w", o.ID, o.Status, errs.ErrDriverUnavailable)
	}
	if d == nil || !d.Available {
		return nil, nil, fmt.Errorf("order %s: %w", o.ID, errs.ErrDriverUnavailable)
	}
	next := o.Clone()
	next.DriverID = d.ID.Ptr()
	next.Status = StatusAssigned
	next.UpdatedAt = now

	busy := d.Clone()
	busy.Available = false
	busy.UpdatedAt = now
	return next, busy, nil
}

// Rewind puts an order that went past assigned back to assigned. It is an
// administrative override used when a simulated run is reset.
func Rewind(o *Order, actor types.Actor, now time.Time) (*Order, error) {
	if !actor.IsAdmin() {
		return nil, fmt.Errorf("actor %s may not reset order %s: %w", actor.ID, o.ID, errs.ErrUnauthorized)
	}
	if o.DriverID == nil {
		return nil, fmt.Errorf("order %s: %w", o.ID, errs.ErrOrderNotAssignable)
	}
	if o.Status == StatusCancelled || o.Status == StatusCreated {
		return nil, fmt.Errorf("%s -> %s: %w", o.Status, StatusAssigned, errs.ErrInvalidTransition)
	}
	next := o.Clone()
	next.Status = StatusAssigned
	next.UpdatedAt = now
	return next, nil
}

// Validate checks that the driver reference agrees with the status. A
// cancelled order may keep its last driver for audit.
func Validate(o *Order) error {
	if !o.Status.Valid() {
		return fmt.Errorf("order %s: unknown status %q: %w", o.ID, o.Status, errs.ErrBadRequest)
	}
	if requiresDriver(o.Status) && o.DriverID == nil {
		return fmt.Errorf("order %s is %s without a driver: %w", o.ID, o.Status, errs.ErrBadRequest)
	}
	if o.Status == StatusCreated && o.DriverID != nil {
		return fmt.Errorf("order %s is created with a driver: %w", o.ID, errs.ErrBadRequest)
	}
	return nil
}

func pathIndex(s Status) int {
	for i, p := range forwardPath {
		if p == s {
			return i
		}
	}
	return -1
}
