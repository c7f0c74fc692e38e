// README: Pricing service computes order amounts from route distance.
package pricing

import (
	"github.com/shopspring/decimal"

	"tracker/internal/types"
)

type Service struct {
	rate Rate
}

func NewService(rate Rate) *Service {
	if rate.Currency == "" {
		rate.Currency = types.DefaultCurrency
	}
	return &Service{rate: rate}
}

// Quote returns base + perKm*distance rounded to cents. Negative distances
// are treated as zero.
func (s *Service) Quote(distanceKm decimal.Decimal) types.Money {
	if distanceKm.IsNegative() {
		distanceKm = decimal.Zero
	}
	return types.NewMoney(s.rate.BaseFare.Add(s.rate.PerKm.Mul(distanceKm)), s.rate.Currency)
}
