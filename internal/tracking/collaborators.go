// README: Collaborators the engine depends on but does not own: route distance and payments.
package tracking

import (
	"context"

	"github.com/shopspring/decimal"

	"tracker/internal/modules/location"
	"tracker/internal/types"
)

// Distance estimates the travel distance of a delivery.
type Distance interface {
	DistanceKm(ctx context.Context, from, to types.Point) (decimal.Decimal, error)
}

// Haversine is the straight-line estimator; it never fails.
type Haversine struct{}

func (Haversine) DistanceKm(_ context.Context, from, to types.Point) (decimal.Decimal, error) {
	return decimal.NewFromFloat(location.DistanceKm(from, to)).Round(3), nil
}

type PaymentIntent struct {
	ID           string      `json:"paymentId"`
	ClientSecret string      `json:"clientSecret,omitempty"`
	Amount       types.Money `json:"amount"`
}

// Payments opens a payment intent for a freshly created order.
type Payments interface {
	CreateIntent(ctx context.Context, orderID types.ID, amount types.Money) (*PaymentIntent, error)
}
