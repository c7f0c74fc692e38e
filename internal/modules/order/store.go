// README: Order store backed by PostgreSQL.
package order

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"tracker/internal/errs"
	"tracker/internal/infra"
	"tracker/internal/types"
)

type Store struct {
	db infra.DBTX
}

func NewStore(db infra.DBTX) *Store {
	return &Store{db: db}
}

const orderColumns = `
	id, customer_id, driver_id, pickup_address, delivery_address,
	pickup_lat, pickup_lng, delivery_lat, delivery_lng,
	status, amount, currency, distance_km, notes, version, created_at, updated_at`

func (s *Store) Create(ctx context.Context, o *Order) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO orders (`+orderColumns+`)
		VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9,
			$10, $11, $12, $13, $14, $15, $16, $17
		)`,
		string(o.ID),
		string(o.CustomerID),
		toStringPtr(o.DriverID),
		o.PickupAddress, o.DeliveryAddress,
		o.Pickup.Lat, o.Pickup.Lng, o.Delivery.Lat, o.Delivery.Lng,
		string(o.Status),
		o.Amount.Amount, o.Amount.Currency,
		o.DistanceKm,
		o.Notes,
		o.Version,
		o.CreatedAt, o.UpdatedAt,
	)
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

// GetForUpdate locks the order row for the rest of the transaction.
func (s *Store) GetForUpdate(ctx context.Context, id types.ID) (*Order, error) {
	return s.get(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1 FOR UPDATE`, id)
}

func (s *Store) get(ctx context.Context, query string, id types.ID) (*Order, error) {
	o, err := scanOrder(s.db.QueryRow(ctx, query, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("order", string(id))
	}
	return o, err
}

// List returns the orders matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]*Order, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.CustomerID != "" {
		add("customer_id = $%d", string(f.CustomerID))
	}
	if f.DriverID != "" {
		add("driver_id = $%d", string(f.DriverID))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, f.EffectiveLimit())
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, len(args))

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]*Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var driverID sql.NullString
	err := row.Scan(
		&o.ID, &o.CustomerID, &driverID, &o.PickupAddress, &o.DeliveryAddress,
		&o.Pickup.Lat, &o.Pickup.Lng, &o.Delivery.Lat, &o.Delivery.Lng,
		&o.Status, &o.Amount.Amount, &o.Amount.Currency, &o.DistanceKm, &o.Notes,
		&o.Version, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if driverID.Valid {
		d := types.ID(driverID.String)
		o.DriverID = &d
	}
	return &o, nil
}

// Update writes o if the stored version still equals o.Version and bumps the
// version on success. A lost race reports errs.ErrConflict.
func (s *Store) Update(ctx context.Context, o *Order) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE orders
		SET driver_id = $3,
		    status = $4,
		    notes = $5,
		    version = version + 1,
		    updated_at = $6
		WHERE id = $1 AND version = $2`,
		string(o.ID),
		o.Version,
		toStringPtr(o.DriverID),
		string(o.Status),
		o.Notes,
		o.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() != 1 {
		return errs.ErrConflict
	}
	o.Version++
	return nil
}

func toStringPtr(v *types.ID) *string {
	if v == nil {
		return nil
	}
	s := string(*v)
	return &s
}
