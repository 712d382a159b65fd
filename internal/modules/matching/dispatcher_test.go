// README: Dispatcher tests with in-memory order/driver sources and a recording committer.
package matching

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"dispatchdesk/internal/modules/driver"
	"dispatchdesk/internal/modules/order"
	"dispatchdesk/internal/types"
)

type mockOrders struct {
	mu     sync.Mutex
	orders []*order.Order
	err    error
	calls  int
}

func (m *mockOrders) ListAssignable(_ context.Context) ([]*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []*order.Order
	for _, o := range m.orders {
		if o.Assignable() {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *mockOrders) Get(_ context.Context, id types.ID) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id {
			cp := *o
			return &cp, nil
		}
	}
	return nil, order.ErrNotFound
}

// Assign behaves like the conditional update in the order store.
func (m *mockOrders) Assign(_ context.Context, cmd order.AssignCommand) (order.AssignResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res order.AssignResult
	for _, ref := range cmd.Orders {
		var found *order.Order
		for _, o := range m.orders {
			if o.ID == ref.ID {
				found = o
			}
		}
		if found == nil || found.Status != ref.Status || found.HasDriver() {
			res.Conflicted = append(res.Conflicted, ref.ID)
			continue
		}
		name, phone := cmd.DriverName, cmd.DriverPhone
		found.DriverName, found.DriverPhone = &name, &phone
		found.Status = order.StatusProcessing
		res.Assigned = append(res.Assigned, ref.ID)
	}
	if len(res.Conflicted) > 0 {
		return res, order.ErrConflict
	}
	return res, nil
}

func (m *mockOrders) add(o *order.Order) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders = append(m.orders, o)
}

func (m *mockOrders) driverOf(id types.ID) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.ID == id && o.DriverName != nil {
			return *o.DriverName
		}
	}
	return ""
}

func (m *mockOrders) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type mockDrivers struct {
	drivers []driver.Driver
	err     error
}

func (m *mockDrivers) ListOnline(_ context.Context) ([]driver.Driver, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]driver.Driver, len(m.drivers))
	copy(out, m.drivers)
	return out, nil
}

func (m *mockDrivers) Get(_ context.Context, id types.ID) (driver.Driver, error) {
	for _, d := range m.drivers {
		if d.ID == id {
			return d, nil
		}
	}
	return driver.Driver{}, driver.ErrNotFound
}

type customerTarget struct{}

func (customerTarget) Target(_ context.Context, o *order.Order) types.Point { return o.Customer }

type recordingNotifier struct {
	mu       sync.Mutex
	newBatch [][]types.ID
	assigned []types.ID
}

func (n *recordingNotifier) NewOrders(_ context.Context, ids []types.ID) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.newBatch = append(n.newBatch, ids)
	return nil
}

func (n *recordingNotifier) Assigned(_ context.Context, id types.ID, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.assigned = append(n.assigned, id)
	return nil
}

// flakyCommitter fails for selected orders before delegating.
type flakyCommitter struct {
	next    committer
	failFor map[types.ID]error
}

func (f *flakyCommitter) Commit(ctx context.Context, refs []order.Ref, d driver.Driver, src Source) (order.AssignResult, error) {
	if err, ok := f.failFor[refs[0].ID]; ok {
		return order.AssignResult{}, err
	}
	return f.next.Commit(ctx, refs, d, src)
}

func newOrderAt(id types.ID, p types.Point) *order.Order {
	return &order.Order{ID: id, Status: order.StatusPaid, Customer: p, CreatedAt: time.Now()}
}

type fixture struct {
	orders   *mockOrders
	drivers  *mockDrivers
	notifier *recordingNotifier
	disp     *Dispatcher
}

func newFixture(drivers []driver.Driver, orders ...*order.Order) *fixture {
	f := &fixture{
		orders:   &mockOrders{orders: orders},
		drivers:  &mockDrivers{drivers: drivers},
		notifier: &recordingNotifier{},
	}
	f.disp = NewDispatcher(DispatcherDeps{
		Orders:    f.orders,
		Drivers:   f.drivers,
		Targets:   customerTarget{},
		Committer: NewCommitter(f.orders, f.notifier, nil),
		Notifier:  f.notifier,
		Selector:  NewSelector(fixedRand(0)),
		Interval:  time.Hour,
	})
	return f
}

func TestTick_NewOrderCueSuppressedOnFirstLoad(t *testing.T) {
	f := newFixture(nil, newOrderAt("o1", scenarioTarget))
	ctx := context.Background()

	r, err := f.disp.Tick(ctx)
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(f.notifier.newBatch) != 0 {
		t.Fatalf("first load must not play the cue, got %v", f.notifier.newBatch)
	}
	if len(r.NewOrders) != 1 {
		t.Fatalf("report should still list the initial orders, got %v", r.NewOrders)
	}

	f.orders.add(newOrderAt("o2", scenarioTarget))
	if _, err := f.disp.Tick(ctx); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(f.notifier.newBatch) != 1 || len(f.notifier.newBatch[0]) != 1 || f.notifier.newBatch[0][0] != "o2" {
		t.Fatalf("expected cue for o2 only, got %v", f.notifier.newBatch)
	}
}

func TestTick_AutoPilotOffDoesNotAssign(t *testing.T) {
	f := newFixture(scenarioDrivers(0, 0, 0), newOrderAt("o1", scenarioTarget))
	r, err := f.disp.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(r.Assigned) != 0 || f.orders.driverOf("o1") != "" {
		t.Fatalf("auto-pilot off must not assign: %+v", r)
	}
}

func TestTick_AutoPilotAssignsNearestFree(t *testing.T) {
	f := newFixture(scenarioDrivers(0, 0, 3), newOrderAt("o1", scenarioTarget))
	f.disp.SetAutoPilot(true)

	r, err := f.disp.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(r.Assigned) != 1 || r.Assigned[0].DriverID != "D1" || r.Assigned[0].Fallback {
		t.Fatalf("expected o1 -> D1, got %+v", r.Assigned)
	}
	if f.orders.driverOf("o1") != "D1" {
		t.Fatalf("order not written: driver=%q", f.orders.driverOf("o1"))
	}
	if len(f.notifier.assigned) != 1 {
		t.Fatalf("expected assignment cue, got %v", f.notifier.assigned)
	}
}

func TestTick_SweepSelectsFromPolledDrivers(t *testing.T) {
	f := newFixture(scenarioDrivers(0, 0, 0),
		newOrderAt("o1", scenarioTarget),
		newOrderAt("o2", scenarioTarget),
	)
	f.disp.SetAutoPilot(true)

	if _, err := f.disp.Tick(context.Background()); err != nil {
		t.Fatalf("tick: %v", err)
	}
	if f.orders.driverOf("o1") != "D1" || f.orders.driverOf("o2") != "D1" {
		t.Fatalf("expected o1->D1, o2->D1; got o1->%s o2->%s", f.orders.driverOf("o1"), f.orders.driverOf("o2"))
	}
}

func TestTick_SweepKeepsFreeDriverForLaterOrders(t *testing.T) {
	f := newFixture(scenarioDrivers(0, 1, 1),
		newOrderAt("o1", scenarioTarget),
		newOrderAt("o2", scenarioTarget),
	)
	f.disp.selector = NewSelector(fixedRand(2))
	f.disp.SetAutoPilot(true)

	r, err := f.disp.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if len(r.Assigned) != 2 {
		t.Fatalf("expected two assignments, got %+v", r.Assigned)
	}
	for _, a := range r.Assigned {
		if a.DriverID != "D1" || a.Fallback {
			t.Fatalf("%s: expected nearest free D1 without fallback, got %+v", a.OrderID, a)
		}
	}
}

func TestTick_NoDriversLeavesOrdersUnassigned(t *testing.T) {
	f := newFixture(nil, newOrderAt("o1", scenarioTarget))
	f.disp.SetAutoPilot(true)

	r, err := f.disp.Tick(context.Background())
	if err != nil {
		t.Fatalf("no drivers must not be an error: %v", err)
	}
	if r.Unassigned != 1 || len(r.Assigned) != 0 {
		t.Fatalf("unexpected report %+v", r)
	}
	if f.disp.tracker.State("o1") != StateIdle {
		t.Fatalf("order should be idle for the next tick, got %s", f.disp.tracker.State("o1"))
	}
}

func TestTick_FailuresDoNotStopSweep(t *testing.T) {
	f := newFixture(scenarioDrivers(0, 0, 0),
		newOrderAt("conflict", scenarioTarget),
		newOrderAt("broken", scenarioTarget),
		newOrderAt("ok", scenarioTarget),
	)
	f.disp.committer = &flakyCommitter{
		next: f.disp.committer,
		failFor: map[types.ID]error{
			"conflict": order.ErrConflict,
			"broken":   errors.New("connection reset"),
		},
	}
	f.disp.SetAutoPilot(true)

	r, err := f.disp.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if r.Conflicts != 1 || r.Failed != 1 || len(r.Assigned) != 1 || r.Assigned[0].OrderID != "ok" {
		t.Fatalf("unexpected report %+v", r)
	}
	for _, id := range []types.ID{"conflict", "broken"} {
		if f.disp.tracker.State(id) != StateIdle {
			t.Fatalf("%s should be retried next tick, state=%s", id, f.disp.tracker.State(id))
		}
	}
}

func TestTick_SkipsOrdersAlreadyInFlight(t *testing.T) {
	f := newFixture(scenarioDrivers(0, 0, 0), newOrderAt("o1", scenarioTarget))
	f.disp.SetAutoPilot(true)
	f.disp.tracker.Begin("o1")

	r, err := f.disp.Tick(context.Background())
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if r.Skipped != 1 || len(r.Assigned) != 0 {
		t.Fatalf("expected in-flight order to be skipped, got %+v", r)
	}
}

func TestTick_FetchErrorIsReported(t *testing.T) {
	f := newFixture(nil)
	f.drivers.err = errors.New("backend unavailable")

	if _, err := f.disp.Tick(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	st := f.disp.Status()
	if st.LastError == "" || st.LastTick == nil {
		t.Fatalf("status should record the failure: %+v", st)
	}
}

func TestWake_CollapsesBurst(t *testing.T) {
	f := newFixture(nil)
	for i := 0; i < 10; i++ {
		f.disp.Wake()
	}
	if n := len(f.disp.wake); n != 1 {
		t.Fatalf("expected one pending trigger, got %d", n)
	}
}

func TestRun_ChangeNotificationTriggersTick(t *testing.T) {
	f := newFixture(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 1)
	done := make(chan struct{})
	go func() {
		f.disp.Run(ctx, changes)
		close(done)
	}()

	waitFor(t, func() bool { return f.orders.callCount() >= 1 }) // initial load
	changes <- "orders"
	waitFor(t, func() bool { return f.orders.callCount() >= 2 })

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestRun_ChangeBurstIsSpacedOut(t *testing.T) {
	f := newFixture(nil)
	f.disp.changeGap = 300 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan string, 32)
	go f.disp.Run(ctx, changes)
	waitFor(t, func() bool { return f.orders.callCount() >= 1 })

	for i := 0; i < 20; i++ {
		changes <- "driver"
	}
	waitFor(t, func() bool { return f.orders.callCount() >= 2 })
	time.Sleep(100 * time.Millisecond)
	if n := f.orders.callCount(); n != 2 {
		t.Fatalf("changes inside the gap must wait, got %d ticks", n)
	}

	waitFor(t, func() bool { return f.orders.callCount() >= 3 })
	time.Sleep(400 * time.Millisecond)
	if n := f.orders.callCount(); n != 3 {
		t.Fatalf("burst should collapse into one trailing tick, got %d ticks", n)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}
