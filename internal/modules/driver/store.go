// README: Driver store backed by PostgreSQL.
package driver

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

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

const uniqueViolation = "23505"

const driverColumns = `id, user_id, vehicle_type, vehicle_plate, current_lat, current_lng, is_available, updated_at`

func (s *Store) Create(ctx context.Context, d *Driver) error {
	lat, lng := positionArgs(d.Position)
	_, err := s.db.Exec(ctx, `
		INSERT INTO drivers (`+driverColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		string(d.ID), string(d.UserID), d.VehicleType, d.VehiclePlate,
		lat, lng, d.Available, d.UpdatedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("driver %s already exists: %w", d.ID, errs.ErrConflict)
	}
	return err
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Driver, error) {
	row := s.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, string(id))
	d, err := scanDriver(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("driver", string(id))
	}
	return d, err
}

// GetForUpdate locks the driver row for the rest of the transaction.
func (s *Store) GetForUpdate(ctx context.Context, id types.ID) (*Driver, error) {
	row := s.db.QueryRow(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1 FOR UPDATE`, string(id))
	d, err := scanDriver(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, errs.NotFound("driver", string(id))
	}
	return d, err
}

func (s *Store) Update(ctx context.Context, d *Driver) error {
	lat, lng := positionArgs(d.Position)
	tag, err := s.db.Exec(ctx, `
		UPDATE drivers
		SET vehicle_type = $2,
		    vehicle_plate = $3,
		    current_lat = $4,
		    current_lng = $5,
		    is_available = $6,
		    updated_at = $7
		WHERE id = $1`,
		string(d.ID), d.VehicleType, d.VehiclePlate, lat, lng, d.Available, d.UpdatedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return errs.NotFound("driver", string(d.ID))
	}
	return nil
}

func (s *Store) ListAvailable(ctx context.Context) ([]*Driver, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+driverColumns+`
		FROM drivers
		WHERE is_available
		ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func scanDriver(row pgx.Row) (*Driver, error) {
	var d Driver
	var lat, lng decimal.NullDecimal
	err := row.Scan(
		&d.ID, &d.UserID, &d.VehicleType, &d.VehiclePlate,
		&lat, &lng, &d.Available, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if lat.Valid && lng.Valid {
		p := types.NewPoint(lat.Decimal, lng.Decimal)
		d.Position = &p
	}
	return &d, nil
}

func positionArgs(p *types.Point) (lat, lng decimal.NullDecimal) {
	if p == nil {
		return lat, lng
	}
	return decimal.NewNullDecimal(p.Lat), decimal.NewNullDecimal(p.Lng)
}
