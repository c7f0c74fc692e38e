// README: Location history record: an append-only fact about where a driver was.
package location

import (
	"time"

	"tracker/internal/types"
)

// DefaultHistoryLimit bounds history listings when the caller gives no limit.
const DefaultHistoryLimit = 100

type Record struct {
	ID         types.ID    `json:"id"`
	DriverID   types.ID    `json:"driverId"`
	OrderID    *types.ID   `json:"orderId,omitempty"`
	Position   types.Point `json:"position"`
	RecordedAt time.Time   `json:"timestamp"`
}

// ClampLimit maps non-positive or oversized limits to a sane range.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
