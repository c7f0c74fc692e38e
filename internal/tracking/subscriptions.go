package tracking

import (
	"context"

	"tracker/internal/broker"
	"tracker/internal/modules/order"
	"tracker/internal/types"
)

// Subscribe adds obs to the order's room and hands it a snapshot of the
// current state. Both happen under the order lock, so every event published
// afterwards is newer than the snapshot.
func (e *Engine) Subscribe(ctx context.Context, orderID types.ID, obs broker.Observer, actor types.Actor) error {
	unlock := e.orderLocks.Lock(orderID)
	defer unlock()

	o, err := e.readOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if err := order.CanView(o, actor); err != nil {
		return err
	}

	payload := snapshotPayload(o)
	if o.DriverID != nil {
		pos, err := e.driverPosition(ctx, *o.DriverID)
		if err != nil {
			e.logger.Warn("snapshot without driver position", "order_id", orderID, "error", err)
		} else if pos != nil {
			payload["currentLat"] = num(pos.Point.Lat)
			payload["currentLng"] = num(pos.Point.Lng)
		}
	}

	e.broker.Join(orderID, obs)
	if err := obs.Deliver(broker.Event{
		Type:      broker.EventSnapshot,
		OrderID:   orderID,
		Payload:   payload,
		Timestamp: e.now(),
	}); err != nil {
		e.logger.Warn("snapshot delivery failed", "order_id", orderID, "observer", obs.ID(), "error", err)
	}
	return nil
}

// Unsubscribe removes obs from one room, or from every room when orderID is
// empty.
func (e *Engine) Unsubscribe(orderID types.ID, obs broker.Observer) {
	if orderID == "" {
		e.broker.Leave(obs)
		return
	}
	e.broker.LeaveRoom(orderID, obs)
}

func snapshotPayload(o *order.Order) map[string]any {
	p := map[string]any{
		"id":              o.ID,
		"status":          o.Status,
		"pickupAddress":   o.PickupAddress,
		"deliveryAddress": o.DeliveryAddress,
		"pickupLat":       num(o.Pickup.Lat),
		"pickupLng":       num(o.Pickup.Lng),
		"deliveryLat":     num(o.Delivery.Lat),
		"deliveryLng":     num(o.Delivery.Lng),
		"amount":          o.Amount,
	}
	if o.DriverID != nil {
		p["driverId"] = *o.DriverID
	}
	return p
}
