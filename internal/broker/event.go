// README: Events fanned out to order rooms.
package broker

import (
	"encoding/json"
	"time"

	"tracker/internal/types"
)

type EventType string

const (
	EventSnapshot       EventType = "order:snapshot"
	EventStatus         EventType = "order:status"
	EventDriverLocation EventType = "driver:location"
)

type Event struct {
	Type      EventType
	OrderID   types.ID
	Payload   map[string]any
	Timestamp time.Time
}

// MarshalJSON flattens Payload next to type, orderId and timestamp. The
// envelope fields win over payload keys of the same name.
func (e Event) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(e.Payload)+3)
	for k, v := range e.Payload {
		out[k] = v
	}
	out["type"] = e.Type
	out["orderId"] = e.OrderID
	out["timestamp"] = e.Timestamp.UTC().Format(time.RFC3339Nano)
	return json.Marshal(out)
}
