// README: Driver aggregate: vehicle metadata, current position snapshot and availability.
package driver

import (
	"time"

	"tracker/internal/types"
)

type Driver struct {
	ID           types.ID     `json:"id"`
	UserID       types.ID     `json:"userId"`
	VehicleType  string       `json:"vehicleType,omitempty"`
	VehiclePlate string       `json:"vehiclePlate,omitempty"`
	Position     *types.Point `json:"position,omitempty"`
	Available    bool         `json:"isAvailable"`
	UpdatedAt    time.Time    `json:"updatedAt"`
}

func (d *Driver) Clone() *Driver {
	cp := *d
	if d.Position != nil {
		p := *d.Position
		cp.Position = &p
	}
	return &cp
}

// MoveTo replaces the current position. It is a point-in-time snapshot and
// carries no history; history lives in location records.
func (d *Driver) MoveTo(p types.Point, at time.Time) {
	d.Position = &p
	d.UpdatedAt = at
}
