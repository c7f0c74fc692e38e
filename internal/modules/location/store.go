// README: Location history store backed by Postgres (append-only).
package location

import (
	"context"
	"database/sql"

	"tracker/internal/infra"
	"tracker/internal/types"
)

type Store struct {
	db infra.DBTX
}

func NewStore(db infra.DBTX) *Store {
	return &Store{db: db}
}

func (s *Store) Append(ctx context.Context, r Record) error {
	var orderID *string
	if r.OrderID != nil {
		v := string(*r.OrderID)
		orderID = &v
	}
	_, err := s.db.Exec(ctx, `
		INSERT INTO location_history (id, driver_id, order_id, lat, lng, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		string(r.ID), string(r.DriverID), orderID, r.Position.Lat, r.Position.Lng, r.RecordedAt,
	)
	return err
}

// ListByDriver returns the newest records first.
func (s *Store) ListByDriver(ctx context.Context, driverID types.ID, limit int) ([]Record, error) {
	rows, err := s.db.Query(ctx, `
		SELECT id, driver_id, order_id, lat, lng, recorded_at
		FROM location_history
		WHERE driver_id = $1
		ORDER BY recorded_at DESC, seq DESC
		LIMIT $2`, string(driverID), ClampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var r Record
		var orderID sql.NullString
		if err := rows.Scan(&r.ID, &r.DriverID, &orderID, &r.Position.Lat, &r.Position.Lng, &r.RecordedAt); err != nil {
			return nil, err
		}
		if orderID.Valid {
			r.OrderID = types.ID(orderID.String).Ptr()
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
