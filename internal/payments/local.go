// README: Local payment intents for deployments without a payment provider.
package payments

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"tracker/internal/errs"
	"tracker/internal/tracking"
	"tracker/internal/types"
)

// Local issues payment intents in process. Nothing is charged; intents only
// live as long as the process.
type Local struct {
	mu      sync.Mutex
	intents map[types.ID]*tracking.PaymentIntent
	logger  *slog.Logger
}

func NewLocal(logger *slog.Logger) *Local {
	return &Local{
		intents: make(map[types.ID]*tracking.PaymentIntent),
		logger:  logger.With("component", "payments"),
	}
}

// CreateIntent opens one intent per order. Asking again for the same order
// returns the existing intent.
func (l *Local) CreateIntent(_ context.Context, orderID types.ID, amount types.Money) (*tracking.PaymentIntent, error) {
	if !amount.Amount.IsPositive() {
		return nil, fmt.Errorf("payment amount %s must be positive: %w", amount.Amount, errs.ErrBadRequest)
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if pi, ok := l.intents[orderID]; ok {
		cp := *pi
		return &cp, nil
	}
	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	pi := &tracking.PaymentIntent{
		ID:           id,
		ClientSecret: id + "_secret_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16],
		Amount:       amount,
	}
	l.intents[orderID] = pi
	l.logger.Info("payment intent created", "order_id", orderID, "payment_id", id, "amount", amount.Amount.String())
	cp := *pi
	return &cp, nil
}

// Intent returns the intent opened for an order.
func (l *Local) Intent(orderID types.ID) (*tracking.PaymentIntent, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	pi, ok := l.intents[orderID]
	if !ok {
		return nil, false
	}
	cp := *pi
	return &cp, true
}
