// README: Restaurant lookup used to resolve an order's pickup coordinate.
package restaurant

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dispatchdesk/internal/types"
)

var ErrNotFound = errors.New("restaurant not found")

type Restaurant struct {
	Name     string
	Position types.Point
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) GetByName(ctx context.Context, name string) (Restaurant, error) {
	var r Restaurant
	var lat, lng *float64
	err := s.db.QueryRow(ctx, `
        SELECT name, latitude, longitude
        FROM restaurants
        WHERE name = $1`, name,
	).Scan(&r.Name, &lat, &lng)
	if errors.Is(err, pgx.ErrNoRows) {
		return Restaurant{}, ErrNotFound
	}
	if err != nil {
		return Restaurant{}, err
	}
	r.Position = types.PointFromNullable(lat, lng)
	return r, nil
}
