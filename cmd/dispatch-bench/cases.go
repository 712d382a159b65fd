// README: Bench cases: environment, schema, HTTP, assignment race, GEO and selector load.
package main

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"dispatchdesk/internal/infra"
	"dispatchdesk/internal/modules/driver"
	"dispatchdesk/internal/modules/location"
	"dispatchdesk/internal/modules/matching"
	"dispatchdesk/internal/modules/order"
	"dispatchdesk/internal/types"
)

const (
	statusPass = "PASS"
	statusFail = "FAIL"
	statusSkip = "SKIP"
)

type Runner struct {
	cfg   Config
	httpc *http.Client
	db    *pgxpool.Pool
	redis *redis.Client
}

type Result struct {
	Status  string
	Latency time.Duration
	Note    string
}

type TestCase struct {
	Name string
	Run  func(ctx context.Context, r *Runner) Result
}

func NewRunner(cfg Config) *Runner {
	return &Runner{
		cfg:   cfg,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

func (r *Runner) RunAll(ctx context.Context) []Result {
	if r.cfg.DSN != "" {
		if db, err := pgxpool.New(ctx, r.cfg.DSN); err == nil {
			r.db = db
		}
	}
	if r.cfg.RedisAddr != "" {
		r.redis = infra.NewRedis(r.cfg.RedisAddr)
	}

	tests := r.cases()
	results := make([]Result, 0, len(tests))
	for _, tc := range tests {
		res := tc.Run(ctx, r)
		results = append(results, res)
		fmt.Printf("%-5s %s", res.Status, tc.Name)
		if res.Latency > 0 {
			fmt.Printf(" (%s)", res.Latency)
		}
		if res.Note != "" {
			fmt.Printf(" - %s", res.Note)
		}
		fmt.Println()
	}

	if r.db != nil {
		r.db.Close()
	}
	if r.redis != nil {
		_ = r.redis.Close()
	}
	return results
}

func fail(err error) Result { return Result{Status: statusFail, Note: err.Error()} }

func (r *Runner) cases() []TestCase {
	return []TestCase{
		{Name: "Env: Postgres connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.db == nil {
				return Result{Status: statusFail, Note: "db not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.db.Ping(ctx); err != nil {
				return fail(err)
			}
			return Result{Status: statusPass}
		}},
		{Name: "Env: Redis connect", Run: func(ctx context.Context, r *Runner) Result {
			if r.redis == nil {
				return Result{Status: statusFail, Note: "redis not configured"}
			}
			ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
			defer cancel()
			if err := r.redis.Ping(ctx).Err(); err != nil {
				return fail(err)
			}
			return Result{Status: statusPass}
		}},
		{Name: "Migration: apply (optional)", Run: func(ctx context.Context, r *Runner) Result {
			if !r.cfg.ApplyMigration {
				return Result{Status: statusSkip, Note: "apply-migration=false"}
			}
			if err := infra.Migrate(r.cfg.DSN); err != nil {
				return fail(err)
			}
			return Result{Status: statusPass}
		}},
		{Name: "Migration: tables exist", Run: tablesExist},
		{Name: "API: health", Run: func(ctx context.Context, r *Runner) Result {
			start := time.Now()
			resp, err := r.httpc.Get(r.cfg.BaseURL + "/health")
			if err != nil {
				return fail(err)
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return Result{Status: statusFail, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
			}
			return Result{Status: statusPass, Latency: time.Since(start)}
		}},
		{Name: "API: dispatch requires auth", Run: func(ctx context.Context, r *Runner) Result {
			resp, err := r.httpc.Get(r.cfg.BaseURL + "/api/dispatch/orders")
			if err != nil {
				return fail(err)
			}
			_ = resp.Body.Close()
			if resp.StatusCode != http.StatusUnauthorized {
				return Result{Status: statusFail, Note: fmt.Sprintf("status=%d", resp.StatusCode)}
			}
			return Result{Status: statusPass}
		}},
		{Name: "Concurrency: one driver wins a contested order", Run: assignRace},
		{Name: "Redis: GEO nearby round trip", Run: geoRoundTrip},
		{Name: "Perf: health throughput", Run: func(ctx context.Context, r *Runner) Result {
			return perfLoad(ctx, r, r.cfg.BaseURL+"/health")
		}},
		{Name: "Perf: selector throughput", Run: selectorLoad},
	}
}

func tablesExist(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusFail, Note: "db not configured"}
	}
	for _, t := range []string{"orders", "driver", "restaurants"} {
		var exists bool
		err := r.db.QueryRow(ctx,
			"SELECT EXISTS (SELECT 1 FROM information_schema.tables WHERE table_name=$1)",
			t,
		).Scan(&exists)
		if err != nil {
			return fail(err)
		}
		if !exists {
			return Result{Status: statusFail, Note: "missing table: " + t}
		}
	}
	return Result{Status: statusPass}
}

// assignRace inserts one paid order and lets cfg.Concurrency drivers try to
// claim it at once through the conditional update.
func assignRace(ctx context.Context, r *Runner) Result {
	if r.db == nil {
		return Result{Status: statusSkip, Note: "db not configured"}
	}
	var id string
	err := r.db.QueryRow(ctx, `
        INSERT INTO orders (status, customer_lat, customer_lon, total_amount, currency)
        VALUES ('paid', 12.97, 77.59, 1000, 'INR')
        RETURNING id::text`).Scan(&id)
	if err != nil {
		return fail(err)
	}
	defer func() { _, _ = r.db.Exec(context.Background(), `DELETE FROM orders WHERE id::text = $1`, id) }()

	store := order.NewStore(r.db)
	ref := order.Ref{ID: types.ID(id), Status: order.StatusPaid}
	var wins, errs int64
	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ok, err := store.AssignDriver(ctx, ref, fmt.Sprintf("bench-%d", i), "000", time.Now())
			if err != nil {
				atomic.AddInt64(&errs, 1)
				return
			}
			if ok {
				atomic.AddInt64(&wins, 1)
			}
		}(i)
	}
	wg.Wait()

	note := fmt.Sprintf("winners=%d errors=%d", wins, errs)
	if wins != 1 || errs > 0 {
		return Result{Status: statusFail, Latency: time.Since(start), Note: note}
	}
	return Result{Status: statusPass, Latency: time.Since(start), Note: note}
}

func geoRoundTrip(ctx context.Context, r *Runner) Result {
	if r.redis == nil {
		return Result{Status: statusSkip, Note: "redis not configured"}
	}
	store := location.NewStore(r.db, r.redis)
	id := types.ID("bench-" + uuid.NewString()[:8])
	pos := types.Point{Lat: 12.9716, Lng: 77.5946}
	if err := store.SetGeo(ctx, id, pos); err != nil {
		return fail(err)
	}
	defer func() { _ = store.RemoveGeo(context.Background(), id) }()

	start := time.Now()
	found, err := store.Nearby(ctx, types.Point{Lat: 12.975, Lng: 77.59}, 2)
	if err != nil {
		return fail(err)
	}
	for _, n := range found {
		if n.DriverID == id {
			return Result{Status: statusPass, Latency: time.Since(start), Note: fmt.Sprintf("%.2f km", n.DistanceKm)}
		}
	}
	return Result{Status: statusFail, Note: "driver not found near its own position"}
}

// selectorLoad measures rank-and-select over a synthetic fleet in process.
func selectorLoad(ctx context.Context, r *Runner) Result {
	drivers := make([]driver.Driver, r.cfg.Drivers)
	for i := range drivers {
		drivers[i] = driver.Driver{
			ID:           types.ID(fmt.Sprintf("d%d", i)),
			Status:       driver.StatusOnline,
			Position:     types.Point{Lat: 12.8 + rand.Float64()*0.4, Lng: 77.4 + rand.Float64()*0.4},
			ActiveOrders: rand.IntN(3),
		}
	}
	sel := matching.NewSelector(nil)
	target := types.Point{Lat: 12.97, Lng: 77.59}

	deadline := time.Now().Add(r.cfg.Duration)
	var n int
	for time.Now().Before(deadline) && ctx.Err() == nil {
		sel.Select(target, drivers)
		n++
	}
	per := r.cfg.Duration / time.Duration(max(n, 1))
	return Result{Status: statusPass, Latency: per, Note: fmt.Sprintf("selections=%d drivers=%d", n, len(drivers))}
}

func perfLoad(ctx context.Context, r *Runner, url string) Result {
	deadline := time.Now().Add(r.cfg.Duration)
	var ok, failed int64
	var wg sync.WaitGroup
	for i := 0; i < r.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for time.Now().Before(deadline) && ctx.Err() == nil {
				req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
				resp, err := r.httpc.Do(req)
				if err != nil {
					atomic.AddInt64(&failed, 1)
					continue
				}
				_, _ = io.Copy(io.Discard, resp.Body)
				_ = resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					atomic.AddInt64(&ok, 1)
				} else {
					atomic.AddInt64(&failed, 1)
				}
			}
		}()
	}
	wg.Wait()

	rps := float64(ok) / r.cfg.Duration.Seconds()
	note := fmt.Sprintf("ok=%d failed=%d rps=%.1f", ok, failed, rps)
	if ok == 0 || failed > ok/100 {
		return Result{Status: statusFail, Note: note}
	}
	return Result{Status: statusPass, Note: note}
}
