package simulator

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

func decimalOf(v any) decimal.Decimal {
	switch n := v.(type) {
	case json.Number:
		return decimal.RequireFromString(n.String())
	case decimal.Decimal:
		return n
	}
	panic(fmt.Sprintf("unexpected coordinate %T", v))
}
