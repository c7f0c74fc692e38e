// README: Pricing rate used to quote an order amount at creation.
package pricing

import (
	"github.com/shopspring/decimal"

	"tracker/internal/types"
)

type Rate struct {
	BaseFare decimal.Decimal
	PerKm    decimal.Decimal
	Currency string
}

// DefaultRate is 5.00 flat plus 0.50 per kilometre.
var DefaultRate = Rate{
	BaseFare: decimal.NewFromInt(5),
	PerKm:    decimal.RequireFromString("0.5"),
	Currency: types.DefaultCurrency,
}
