package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/errs"
	"tracker/internal/modules/driver"
	"tracker/internal/modules/location"
	"tracker/internal/modules/order"
	"tracker/internal/store"
	"tracker/internal/types"
)

var base = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newDriver() *driver.Driver {
	return &driver.Driver{
		ID:          types.NewID(),
		UserID:      types.NewID(),
		VehicleType: "bike",
		Available:   true,
		UpdatedAt:   base,
	}
}

func newOrder() *order.Order {
	return &order.Order{
		ID:              types.NewID(),
		CustomerID:      types.NewID(),
		PickupAddress:   "Marina, Lagos",
		DeliveryAddress: "Yaba, Lagos",
		Pickup:          types.PointFromFloat(6.5244, 3.3792),
		Delivery:        types.PointFromFloat(6.55, 3.4),
		Status:          order.StatusCreated,
		Amount:          types.NewMoney(decimal.RequireFromString("6.83"), "USD"),
		CreatedAt:       base,
		UpdatedAt:       base,
	}
}

// runGatewayContract exercises behaviour every Gateway implementation shares.
func runGatewayContract(t *testing.T, gw store.Gateway) {
	ctx := context.Background()

	t.Run("order round trip", func(t *testing.T) {
		o := newOrder()
		require.NoError(t, gw.CreateOrder(ctx, o))

		got, err := gw.FindOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, o.ID, got.ID)
		assert.Equal(t, order.StatusCreated, got.Status)
		assert.True(t, got.Pickup.Equal(o.Pickup))
		assert.True(t, got.Amount.Amount.Equal(o.Amount.Amount))
		assert.Nil(t, got.DriverID)
	})

	t.Run("missing order is not found", func(t *testing.T) {
		_, err := gw.FindOrder(ctx, types.NewID())
		assert.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("stale save conflicts", func(t *testing.T) {
		o := newOrder()
		require.NoError(t, gw.CreateOrder(ctx, o))

		a, err := gw.FindOrder(ctx, o.ID)
		require.NoError(t, err)
		b, err := gw.FindOrder(ctx, o.ID)
		require.NoError(t, err)

		a.Status = order.StatusCancelled
		require.NoError(t, gw.SaveOrder(ctx, a))
		assert.Equal(t, o.Version+1, a.Version)

		b.Notes = "late writer"
		assert.ErrorIs(t, gw.SaveOrder(ctx, b), errs.ErrConflict)

		got, err := gw.FindOrder(ctx, o.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusCancelled, got.Status)
	})

	t.Run("assign driver is atomic", func(t *testing.T) {
		d := newDriver()
		require.NoError(t, gw.CreateDriver(ctx, d))
		o := newOrder()
		require.NoError(t, gw.CreateOrder(ctx, o))

		assigned, busy, err := order.AssignDriver(o, d, types.System, base)
		require.NoError(t, err)
		require.NoError(t, gw.AssignDriver(ctx, assigned, busy))

		gotOrder, err := gw.FindOrder(ctx, o.ID)
		require.NoError(t, err)
		require.NotNil(t, gotOrder.DriverID)
		assert.Equal(t, d.ID, *gotOrder.DriverID)
		assert.Equal(t, order.StatusAssigned, gotOrder.Status)

		gotDriver, err := gw.FindDriver(ctx, d.ID)
		require.NoError(t, err)
		assert.False(t, gotDriver.Available)

		// A second order cannot claim the same driver.
		other := newOrder()
		require.NoError(t, gw.CreateOrder(ctx, other))
		again, _, err := order.AssignDriver(other, d, types.System, base)
		require.NoError(t, err)
		assert.ErrorIs(t, gw.AssignDriver(ctx, again, busy), errs.ErrDriverUnavailable)

		stillCreated, err := gw.FindOrder(ctx, other.ID)
		require.NoError(t, err)
		assert.Equal(t, order.StatusCreated, stillCreated.Status)
		assert.Equal(t, other.Version, again.Version)
	})

	t.Run("list orders filters newest first", func(t *testing.T) {
		customerID := types.NewID()
		var ids []types.ID
		for i := 0; i < 3; i++ {
			o := newOrder()
			o.CustomerID = customerID
			o.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			require.NoError(t, gw.CreateOrder(ctx, o))
			ids = append(ids, o.ID)
		}
		require.NoError(t, gw.CreateOrder(ctx, newOrder()))

		got, err := gw.ListOrders(ctx, order.Filter{CustomerID: customerID})
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, []types.ID{ids[2], ids[1], ids[0]}, []types.ID{got[0].ID, got[1].ID, got[2].ID})

		limited, err := gw.ListOrders(ctx, order.Filter{CustomerID: customerID, Limit: 2})
		require.NoError(t, err)
		assert.Len(t, limited, 2)

		d := newDriver()
		require.NoError(t, gw.CreateDriver(ctx, d))
		first, err := gw.FindOrder(ctx, ids[0])
		require.NoError(t, err)
		assigned, busy, err := order.AssignDriver(first, d, types.System, base)
		require.NoError(t, err)
		require.NoError(t, gw.AssignDriver(ctx, assigned, busy))

		byDriver, err := gw.ListOrders(ctx, order.Filter{DriverID: d.ID})
		require.NoError(t, err)
		require.Len(t, byDriver, 1)
		assert.Equal(t, ids[0], byDriver[0].ID)

		created, err := gw.ListOrders(ctx, order.Filter{CustomerID: customerID, Status: order.StatusCreated})
		require.NoError(t, err)
		assert.Len(t, created, 2)
	})

	t.Run("duplicate driver conflicts", func(t *testing.T) {
		d := newDriver()
		require.NoError(t, gw.CreateDriver(ctx, d))
		assert.ErrorIs(t, gw.CreateDriver(ctx, d), errs.ErrConflict)
	})

	t.Run("driver position and availability", func(t *testing.T) {
		d := newDriver()
		require.NoError(t, gw.CreateDriver(ctx, d))

		d.MoveTo(types.PointFromFloat(6.53, 3.38), base.Add(time.Minute))
		d.Available = false
		require.NoError(t, gw.SaveDriver(ctx, d))

		got, err := gw.FindDriver(ctx, d.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Position)
		assert.True(t, got.Position.Equal(types.PointFromFloat(6.53, 3.38)))

		avail, err := gw.ListAvailableDrivers(ctx)
		require.NoError(t, err)
		for _, a := range avail {
			assert.NotEqual(t, d.ID, a.ID)
		}
	})

	t.Run("history newest first with limit", func(t *testing.T) {
		d := newDriver()
		require.NoError(t, gw.CreateDriver(ctx, d))
		for i := 0; i < 5; i++ {
			require.NoError(t, gw.AppendLocationHistory(ctx, location.Record{
				ID:         types.NewID(),
				DriverID:   d.ID,
				Position:   types.PointFromFloat(6.52+float64(i)/100, 3.37),
				RecordedAt: base.Add(time.Duration(i) * time.Second),
			}))
		}

		got, err := gw.ListLocationHistory(ctx, d.ID, 3)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.True(t, got[0].RecordedAt.Equal(base.Add(4*time.Second)))
		assert.True(t, got[2].RecordedAt.Equal(base.Add(2*time.Second)))
	})
}
