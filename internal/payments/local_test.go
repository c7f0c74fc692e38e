package payments

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/errs"
	"tracker/internal/store"
	"tracker/internal/tracking"
	"tracker/internal/types"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestLocal_CreateIntentIsPerOrder(t *testing.T) {
	l := NewLocal(quiet)
	ctx := context.Background()
	amount := types.Money{Amount: decimal.RequireFromString("7.40"), Currency: "USD"}

	first, err := l.CreateIntent(ctx, "o-1", amount)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(first.ID, "pi_"))
	assert.True(t, strings.HasPrefix(first.ClientSecret, first.ID+"_secret_"))
	assert.True(t, first.Amount.Amount.Equal(amount.Amount))

	again, err := l.CreateIntent(ctx, "o-1", amount)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	other, err := l.CreateIntent(ctx, "o-2", amount)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	got, ok := l.Intent("o-2")
	require.True(t, ok)
	assert.Equal(t, other.ClientSecret, got.ClientSecret)
	_, ok = l.Intent("o-3")
	assert.False(t, ok)
}

func TestLocal_RejectsNonPositiveAmount(t *testing.T) {
	_, err := NewLocal(quiet).CreateIntent(context.Background(), "o-1", types.Money{Amount: decimal.Zero, Currency: "USD"})
	assert.ErrorIs(t, err, errs.ErrBadRequest)
}

func TestLocal_BacksCreateOrder(t *testing.T) {
	l := NewLocal(quiet)
	engine := tracking.New(tracking.Deps{Gateway: store.NewMemory(), Payments: l, Logger: quiet}, tracking.Options{})

	o, pi, err := engine.CreateOrder(context.Background(), tracking.CreateOrderCmd{
		PickupAddress:   "Marina",
		DeliveryAddress: "Yaba",
		Pickup:          types.PointFromFloat(6.5244, 3.3792),
		Delivery:        types.PointFromFloat(6.55, 3.4),
	}, types.Actor{ID: "c1", Role: types.RoleCustomer})
	require.NoError(t, err)
	require.NotNil(t, pi)
	stored, ok := l.Intent(o.ID)
	require.True(t, ok)
	assert.Equal(t, stored.ID, pi.ID)
	assert.True(t, pi.Amount.Amount.Equal(o.Amount.Amount))
}
