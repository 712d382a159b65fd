// README: Postgres LISTEN/NOTIFY change feed used as a best-effort wake-up trigger.
package infra

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ChangeChannel is the NOTIFY channel the table triggers publish on; the
// payload is the table name.
const ChangeChannel = "table_changes"

const listenRetryDelay = 5 * time.Second

// ListenTableChanges emits the name of every changed table that appears in
// tables. The connection is re-established after failures until ctx ends.
func ListenTableChanges(ctx context.Context, pool *pgxpool.Pool, tables ...string) <-chan string {
	want := make(map[string]bool, len(tables))
	for _, t := range tables {
		want[t] = true
	}
	out := make(chan string, 16)

	go func() {
		defer close(out)
		for {
			err := listenOnce(ctx, pool, want, out)
			if ctx.Err() != nil {
				return
			}
			log.Printf("infra: change feed interrupted: %v; retrying in %s", err, listenRetryDelay)
			select {
			case <-ctx.Done():
				return
			case <-time.After(listenRetryDelay):
			}
		}
	}()
	return out
}

func listenOnce(ctx context.Context, pool *pgxpool.Pool, want map[string]bool, out chan<- string) error {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_, _ = conn.Exec(context.Background(), "UNLISTEN *")
		conn.Release()
	}()

	if _, err := conn.Exec(ctx, "LISTEN "+ChangeChannel); err != nil {
		return err
	}
	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		if len(want) > 0 && !want[n.Payload] {
			continue
		}
		select {
		case out <- n.Payload:
		default:
			// Consumer is behind; a pending wake-up is already queued.
		}
	}
}
