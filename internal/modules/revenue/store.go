// README: Revenue store aggregates delivered orders in PostgreSQL.
package revenue

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// dailyRow is one aggregated day as read from the database.
type dailyRow struct {
	Day      time.Time
	Orders   int
	Amount   int64
	Currency string
}

type Store struct {
	db *pgxpool.Pool
}

func NewStore(db *pgxpool.Pool) *Store {
	return &Store{db: db}
}

// Daily sums delivered orders per UTC day in [from, to).
func (s *Store) Daily(ctx context.Context, from, to time.Time) ([]dailyRow, error) {
	rows, err := s.db.Query(ctx, `
        SELECT (created_at AT TIME ZONE 'UTC')::date AS day,
               COUNT(*),
               COALESCE(SUM(total_amount), 0),
               COALESCE(MAX(currency), '')
        FROM orders
        WHERE status = 'delivered'
          AND created_at >= $1
          AND created_at < $2
        GROUP BY day
        ORDER BY day`,
		from, to,
	)
	if err != nil {
		return nil, fmt.Errorf("daily revenue: %w", err)
	}
	defer rows.Close()

	var out []dailyRow
	for rows.Next() {
		var r dailyRow
		if err := rows.Scan(&r.Day, &r.Orders, &r.Amount, &r.Currency); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
