// README: Order store backed by PostgreSQL.
package order

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dispatchdesk/internal/types"
)

const orderColumns = `
        id::text, status, driver_name, driver_phone, restaurant_name,
        customer_lat, customer_lon, total_amount, currency, created_at, updated_at`

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

func (s *Store) Get(ctx context.Context, id types.ID) (*Order, error) {
	row := s.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id::text = $1`, string(id))
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

// ListAssignable returns confirmed/paid orders with no driver, oldest first.
func (s *Store) ListAssignable(ctx context.Context) ([]*Order, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+orderColumns+`
        FROM orders
        WHERE status = ANY($1)
          AND btrim(COALESCE(driver_name, '')) = ''
          AND btrim(COALESCE(driver_phone, '')) = ''
        ORDER BY created_at ASC`,
		statusStrings(AssignableStatuses),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CountActiveByDriver returns the number of active orders per driver name.
func (s *Store) CountActiveByDriver(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.Query(ctx, `
        SELECT driver_name, COUNT(*)
        FROM orders
        WHERE status = ANY($1)
          AND btrim(COALESCE(driver_name, '')) <> ''
        GROUP BY driver_name`,
		append(statusStrings(ActiveStatuses), string(statusOutForDelivery)),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, err
		}
		counts[name] = n
	}
	return counts, rows.Err()
}

// AssignDriver sets the driver and moves the order to processing, provided it
// is still in the observed status with no driver. Reports whether a row changed.
func (s *Store) AssignDriver(ctx context.Context, ref Ref, name, phone string, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET driver_name = $1,
            driver_phone = $2,
            status = $3,
            updated_at = $4
        WHERE id::text = $5
          AND status = $6
          AND btrim(COALESCE(driver_name, '')) = ''
          AND btrim(COALESCE(driver_phone, '')) = ''`,
		name,
		phone,
		string(StatusProcessing),
		at,
		string(ref.ID),
		string(ref.Status),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) UpdateStatus(ctx context.Context, id types.ID, from, to Status, at time.Time) (bool, error) {
	tag, err := s.db.Exec(ctx, `
        UPDATE orders
        SET status = $1, updated_at = $2
        WHERE id::text = $3 AND status = ANY($4)`,
		string(to),
		at,
		string(id),
		storedAs(from),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// storedAs lists the raw column values that normalize to s.
func storedAs(s Status) []string {
	if s == StatusShipped {
		return []string{string(StatusShipped), string(statusOutForDelivery)}
	}
	return []string{string(s)}
}

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	var status string
	var lat, lng *float64
	var currency *string
	err := row.Scan(
		&o.ID, &status, &o.DriverName, &o.DriverPhone, &o.RestaurantName,
		&lat, &lng, &o.Total.Amount, &currency, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.Status = NormalizeStatus(status)
	o.Customer = types.PointFromNullable(lat, lng)
	o.Total.Currency = defaultCurrency
	if currency != nil && *currency != "" {
		o.Total.Currency = *currency
	}
	return &o, nil
}
