// README: Driver store backed by PostgreSQL.
package driver

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dispatchdesk/internal/types"
)

var ErrNotFound = errors.New("driver not found")

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) ListOnline(ctx context.Context) ([]Driver, error) {
	rows, err := s.db.Query(ctx, `
        SELECT id::text, name, phone, status, latitude, longitude
        FROM driver
        WHERE status = $1
        ORDER BY id`, string(StatusOnline),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) Get(ctx context.Context, id types.ID) (Driver, error) {
	row := s.db.QueryRow(ctx, `
        SELECT id::text, name, phone, status, latitude, longitude
        FROM driver
        WHERE id::text = $1`, string(id),
	)
	d, err := scanDriver(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Driver{}, ErrNotFound
	}
	return d, err
}

func scanDriver(row pgx.Row) (Driver, error) {
	var d Driver
	var status string
	var lat, lng *float64
	if err := row.Scan(&d.ID, &d.Name, &d.Phone, &status, &lat, &lng); err != nil {
		return Driver{}, err
	}
	d.Status = Status(strings.ToLower(strings.TrimSpace(status)))
	d.Position = types.PointFromNullable(lat, lng)
	return d, nil
}
