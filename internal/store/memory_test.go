package store_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tracker/internal/errs"
	"tracker/internal/store"
)

func TestMemoryGateway(t *testing.T) {
	runGatewayContract(t, store.NewMemory())
}

func TestMemoryReturnsClones(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()
	o := newOrder()
	require.NoError(t, m.CreateOrder(ctx, o))

	got, err := m.FindOrder(ctx, o.ID)
	require.NoError(t, err)
	got.Notes = "mutated"

	again, err := m.FindOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Notes)
}

func TestMemoryFailureIsUpstream(t *testing.T) {
	m := store.NewMemory()
	m.FailWith = errors.New("connection refused")

	_, err := m.FindOrder(context.Background(), "x")
	assert.ErrorIs(t, err, errs.ErrUpstreamUnavailable)
}
