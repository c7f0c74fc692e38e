// README: Order aggregate and status definitions.
package order

import (
	"time"

	"github.com/shopspring/decimal"

	"tracker/internal/types"
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusAssigned  Status = "assigned"
	StatusPickedUp  Status = "picked_up"
	StatusInTransit Status = "in_transit"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

type Order struct {
	ID              types.ID        `json:"id"`
	CustomerID      types.ID        `json:"customerId"`
	DriverID        *types.ID       `json:"driverId,omitempty"`
	PickupAddress   string          `json:"pickupAddress"`
	DeliveryAddress string          `json:"deliveryAddress"`
	Pickup          types.Point     `json:"pickup"`
	Delivery        types.Point     `json:"delivery"`
	Status          Status          `json:"status"`
	Amount          types.Money     `json:"amount"`
	DistanceKm      decimal.Decimal `json:"distanceKm"`
	Notes           string          `json:"notes,omitempty"`
	Version         int             `json:"version"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Clone returns a copy that shares no pointers with o.
func (o *Order) Clone() *Order {
	cp := *o
	if o.DriverID != nil {
		d := *o.DriverID
		cp.DriverID = &d
	}
	return &cp
}

// HasDriver reports whether id is the driver currently assigned to o.
func (o *Order) HasDriver(id types.ID) bool {
	return o.DriverID != nil && *o.DriverID == id
}

// AllowedTransitions represents the order state flow (diagram) as code.
var AllowedTransitions = map[Status][]Status{
	StatusCreated:   {StatusAssigned, StatusCancelled},
	StatusAssigned:  {StatusPickedUp, StatusCancelled},
	StatusPickedUp:  {StatusInTransit, StatusCancelled},
	StatusInTransit: {StatusDelivered, StatusCancelled},
}

// forwardPath is the happy path used by Advance.
var forwardPath = []Status{StatusCreated, StatusAssigned, StatusPickedUp, StatusInTransit, StatusDelivered}

func CanTransition(from, to Status) bool {
	next, ok := AllowedTransitions[from]
	if !ok {
		return false
	}
	for _, s := range next {
		if s == to {
			return true
		}
	}
	return false
}

func IsTerminal(s Status) bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s Status) Valid() bool {
	switch s {
	case StatusCreated, StatusAssigned, StatusPickedUp, StatusInTransit, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// requiresDriver reports whether an order in status s must carry a driver.
func requiresDriver(s Status) bool {
	switch s {
	case StatusAssigned, StatusPickedUp, StatusInTransit, StatusDelivered:
		return true
	}
	return false
}

// DefaultListLimit bounds order listings when the caller gives no limit.
const DefaultListLimit = 100

// Filter narrows an order listing. Zero fields match everything.
type Filter struct {
	CustomerID types.ID
	DriverID   types.ID
	Status     Status
	Limit      int
}

func (f Filter) Matches(o *Order) bool {
	if f.CustomerID != "" && o.CustomerID != f.CustomerID {
		return false
	}
	if f.DriverID != "" && !o.HasDriver(f.DriverID) {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return true
}

// EffectiveLimit maps non-positive or oversized limits to a sane range.
func (f Filter) EffectiveLimit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	if f.Limit > 1000 {
		return 1000
	}
	return f.Limit
}
