// README: Polling loop that detects new orders and, in auto-pilot, assigns them.
package matching

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"dispatchdesk/internal/modules/driver"
	"dispatchdesk/internal/modules/order"
	"dispatchdesk/internal/types"
)

type OrderSource interface {
	ListAssignable(ctx context.Context) ([]*order.Order, error)
}

type DriverSource interface {
	ListOnline(ctx context.Context) ([]driver.Driver, error)
}

type Targeter interface {
	Target(ctx context.Context, o *order.Order) types.Point
}

type committer interface {
	Commit(ctx context.Context, refs []order.Ref, d driver.Driver, src Source) (order.AssignResult, error)
}

type DispatcherDeps struct {
	Orders    OrderSource
	Drivers   DriverSource
	Targets   Targeter
	Committer *Committer
	Notifier  Notifier
	Selector  *Selector
	Tracker   *Tracker
	Interval  time.Duration
	// ChangeGap is the minimum spacing between ticks started by the change
	// feed. Defaults to one second.
	ChangeGap time.Duration
}

// Assignment is one order claimed during a sweep.
type Assignment struct {
	OrderID    types.ID `json:"order_id"`
	DriverID   types.ID `json:"driver_id"`
	DistanceKm float64  `json:"distance_km"`
	Fallback   bool     `json:"fallback"`
}

// TickReport summarises one poll.
type TickReport struct {
	Orders     int          `json:"orders"`
	Drivers    int          `json:"drivers"`
	NewOrders  []types.ID   `json:"new_orders"`
	Assigned   []Assignment `json:"assigned"`
	Unassigned int          `json:"unassigned"`
	Skipped    int          `json:"skipped"`
	Conflicts  int          `json:"conflicts"`
	Failed     int          `json:"failed"`
}

type DispatcherStatus struct {
	AutoPilot bool        `json:"autopilot"`
	Interval  string      `json:"interval"`
	LastTick  *time.Time  `json:"last_tick,omitempty"`
	LastError string      `json:"last_error,omitempty"`
	InFlight  int         `json:"in_flight"`
	Last      *TickReport `json:"last,omitempty"`
}

type Dispatcher struct {
	orders    OrderSource
	drivers   DriverSource
	targets   Targeter
	committer committer
	notifier  Notifier
	selector  *Selector
	tracker   *Tracker
	detector  *ChangeDetector
	interval  time.Duration
	changeGap time.Duration

	autopilot atomic.Bool
	// wake holds at most one pending trigger; further triggers collapse into it.
	wake chan struct{}
	now  func() time.Time

	mu       sync.Mutex
	lastTick time.Time
	lastErr  error
	last     *TickReport
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	d := &Dispatcher{
		orders:    deps.Orders,
		drivers:   deps.Drivers,
		targets:   deps.Targets,
		notifier:  deps.Notifier,
		selector:  deps.Selector,
		tracker:   deps.Tracker,
		detector:  NewChangeDetector(),
		interval:  deps.Interval,
		changeGap: deps.ChangeGap,
		wake:      make(chan struct{}, 1),
		now:       time.Now,
	}
	if deps.Committer != nil {
		d.committer = deps.Committer
	}
	if d.selector == nil {
		d.selector = NewSelector(nil)
	}
	if d.tracker == nil {
		d.tracker = NewTracker()
	}
	if d.interval <= 0 {
		d.interval = 5 * time.Second
	}
	if d.changeGap <= 0 {
		d.changeGap = time.Second
	}
	return d
}

func (d *Dispatcher) SetAutoPilot(on bool) { d.autopilot.Store(on) }

func (d *Dispatcher) AutoPilot() bool { return d.autopilot.Load() }

// Wake requests a tick. It never blocks.
func (d *Dispatcher) Wake() {
	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Run ticks on the interval and whenever changes delivers a table name, until
// ctx is cancelled. Only one tick runs at a time. changes may be nil.
func (d *Dispatcher) Run(ctx context.Context, changes <-chan string) {
	go d.produceTicks(ctx)
	if changes != nil {
		go d.produceChanges(ctx, changes)
	}

	d.Wake()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.wake:
			_, _ = d.Tick(ctx)
		}
	}
}

func (d *Dispatcher) produceTicks(ctx context.Context) {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.Wake()
		}
	}
}

// produceChanges wakes the loop at most once per changeGap. Changes that land
// inside the gap collapse into a single trailing wake.
func (d *Dispatcher) produceChanges(ctx context.Context, changes <-chan string) {
	var last time.Time
	var pending *time.Timer
	var fire <-chan time.Time
	defer func() {
		if pending != nil {
			pending.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-changes:
			if !ok {
				if fire != nil {
					d.Wake()
				}
				return
			}
			if fire != nil {
				continue
			}
			if wait := d.changeGap - time.Since(last); wait > 0 {
				pending = time.NewTimer(wait)
				fire = pending.C
				continue
			}
			last = time.Now()
			d.Wake()
		case <-fire:
			fire = nil
			last = time.Now()
			d.Wake()
		}
	}
}

// Tick fetches assignable orders and online drivers, reports new orders and,
// when auto-pilot is on, sweeps the orders in fetch order. A failure on one
// order never stops the sweep.
func (d *Dispatcher) Tick(ctx context.Context) (TickReport, error) {
	sweep := uuid.NewString()[:8]
	var report TickReport

	var orders []*order.Order
	var drivers []driver.Driver
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		orders, err = d.orders.ListAssignable(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		drivers, err = d.drivers.ListOnline(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Printf("dispatch[%s]: fetch failed: %v", sweep, err)
		d.record(nil, err)
		return report, err
	}
	report.Orders, report.Drivers = len(orders), len(drivers)

	ids := make([]types.ID, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
	}
	added, notify := d.detector.Observe(ids)
	report.NewOrders = added
	if notify && d.notifier != nil {
		if err := d.notifier.NewOrders(ctx, added); err != nil {
			log.Printf("dispatch[%s]: new order cue: %v", sweep, err)
		}
	}
	d.tracker.Prune(ids)

	if d.autopilot.Load() && d.committer != nil {
		d.sweep(ctx, sweep, orders, drivers, &report)
	}
	d.record(&report, nil)
	return report, nil
}

func (d *Dispatcher) sweep(ctx context.Context, sweep string, orders []*order.Order, drivers []driver.Driver, report *TickReport) {
	for _, o := range orders {
		if ctx.Err() != nil {
			return
		}
		if !o.Assignable() {
			continue
		}
		if !d.tracker.Begin(o.ID) {
			report.Skipped++
			continue
		}
		sel, ok := d.selector.Select(d.targets.Target(ctx, o), drivers)
		if !ok {
			d.tracker.Finish(o.ID, false)
			report.Unassigned++
			continue
		}
		_, err := d.committer.Commit(ctx, []order.Ref{o.Ref()}, sel.Driver, SourceAutoPilot)
		if err != nil {
			d.tracker.Finish(o.ID, false)
			if errors.Is(err, order.ErrConflict) {
				report.Conflicts++
				continue
			}
			report.Failed++
			log.Printf("dispatch[%s]: assign order %s to %s: %v", sweep, o.ID, sel.Driver.Name, err)
			continue
		}
		d.tracker.Finish(o.ID, true)
		report.Assigned = append(report.Assigned, Assignment{
			OrderID:    o.ID,
			DriverID:   sel.Driver.ID,
			DistanceKm: sel.DistanceKm,
			Fallback:   sel.Fallback,
		})
		log.Printf("dispatch[%s]: order %s -> %s (%.2f km, fallback=%v)", sweep, o.ID, sel.Driver.Name, sel.DistanceKm, sel.Fallback)
	}
}

func (d *Dispatcher) record(r *TickReport, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastTick = d.now()
	d.lastErr = err
	if r != nil {
		d.last = r
	}
}

func (d *Dispatcher) Status() DispatcherStatus {
	d.mu.Lock()
	defer d.mu.Unlock()
	st := DispatcherStatus{
		AutoPilot: d.autopilot.Load(),
		Interval:  d.interval.String(),
		InFlight:  d.tracker.InFlight(),
		Last:      d.last,
	}
	if !d.lastTick.IsZero() {
		t := d.lastTick
		st.LastTick = &t
	}
	if d.lastErr != nil {
		st.LastError = d.lastErr.Error()
	}
	return st
}
