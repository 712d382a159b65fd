// README: Matching service backs the manual assignment view and the auto-pilot switch.
package matching

import (
	"context"
	"errors"
	"fmt"
	"log"

	"dispatchdesk/internal/maps"
	"dispatchdesk/internal/modules/driver"
	"dispatchdesk/internal/modules/order"
	"dispatchdesk/internal/types"
)

var ErrDriverUnavailable = errors.New("driver is not online")

type OrderReader interface {
	Get(ctx context.Context, id types.ID) (*order.Order, error)
	ListAssignable(ctx context.Context) ([]*order.Order, error)
}

type DriverReader interface {
	ListOnline(ctx context.Context) ([]driver.Driver, error)
	Get(ctx context.Context, id types.ID) (driver.Driver, error)
}

// DriveEstimator is optional; when nil candidates carry no driving estimate.
type DriveEstimator interface {
	DriveEstimate(ctx context.Context, from, to types.Point) (maps.DriveEstimate, error)
}

type settingsStore interface {
	SetAutoPilot(ctx context.Context, on bool) error
	AutoPilot(ctx context.Context) (bool, bool, error)
	RecentAssignments(ctx context.Context, n int) ([]AuditEntry, error)
}

type ServiceDeps struct {
	Store      *Store
	Orders     OrderReader
	Drivers    DriverReader
	Targets    Targeter
	Committer  *Committer
	Tracker    *Tracker
	Dispatcher *Dispatcher
	Drive      DriveEstimator
}

type Service struct {
	store      settingsStore
	orders     OrderReader
	drivers    DriverReader
	targets    Targeter
	committer  committer
	tracker    *Tracker
	dispatcher *Dispatcher
	drive      DriveEstimator
}

func NewService(deps ServiceDeps) *Service {
	s := &Service{
		orders:     deps.Orders,
		drivers:    deps.Drivers,
		targets:    deps.Targets,
		tracker:    deps.Tracker,
		dispatcher: deps.Dispatcher,
	}
	if deps.Store != nil {
		s.store = deps.Store
	}
	if deps.Committer != nil {
		s.committer = deps.Committer
	}
	if deps.Drive != nil {
		s.drive = deps.Drive
	}
	if s.tracker == nil {
		s.tracker = NewTracker()
	}
	return s
}

// CandidateList is the manual assignment view of one order.
type CandidateList struct {
	Order      *order.Order `json:"order"`
	Target     types.Point  `json:"target"`
	Candidates []Candidate  `json:"candidates"`
	// Suggested is the nearest free driver, if any.
	Suggested *Candidate `json:"suggested,omitempty"`
}

func (s *Service) ListAssignable(ctx context.Context) ([]*order.Order, error) {
	return s.orders.ListAssignable(ctx)
}

// Candidates ranks every online driver against the order's target.
func (s *Service) Candidates(ctx context.Context, orderID types.ID, withDrive bool) (CandidateList, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return CandidateList{}, err
	}
	drivers, err := s.drivers.ListOnline(ctx)
	if err != nil {
		return CandidateList{}, err
	}
	target := s.targets.Target(ctx, o)
	list := CandidateList{Order: o, Target: target, Candidates: Rank(target, drivers)}
	for i := range list.Candidates {
		if list.Candidates[i].Driver.Free() {
			c := list.Candidates[i]
			list.Suggested = &c
			break
		}
	}
	if withDrive && s.drive != nil && target.Valid() {
		s.attachDrive(ctx, target, list.Candidates)
	}
	return list, nil
}

func (s *Service) attachDrive(ctx context.Context, target types.Point, cands []Candidate) {
	for i := 0; i < len(cands) && i < etaCandidates; i++ {
		pos := cands[i].Driver.Position
		if !pos.Valid() {
			continue
		}
		est, err := s.drive.DriveEstimate(ctx, pos, target)
		if err != nil {
			log.Printf("matching: drive estimate for driver %s: %v", cands[i].Driver.ID, err)
			continue
		}
		cands[i].Drive = &est
	}
}

// AssignManual assigns the given orders to one driver. Orders that are no
// longer assignable, or are being auto-assigned right now, are reported as
// conflicts; there is no automatic retry.
func (s *Service) AssignManual(ctx context.Context, orderIDs []types.ID, driverID types.ID) (order.AssignResult, error) {
	var res order.AssignResult
	if len(orderIDs) == 0 || driverID == "" {
		return res, order.ErrBadRequest
	}
	if s.committer == nil {
		return res, errors.New("matching: no committer configured")
	}
	d, err := s.drivers.Get(ctx, driverID)
	if err != nil {
		return res, err
	}
	if d.Status != driver.StatusOnline {
		return res, ErrDriverUnavailable
	}

	var refs []order.Ref
	var claimed []types.ID
	defer func() {
		assigned := make(map[types.ID]bool, len(res.Assigned))
		for _, id := range res.Assigned {
			assigned[id] = true
		}
		for _, id := range claimed {
			s.tracker.Finish(id, assigned[id])
		}
	}()

	for _, id := range uniqueIDs(orderIDs) {
		o, err := s.orders.Get(ctx, id)
		if err != nil {
			if errors.Is(err, order.ErrNotFound) {
				res.Conflicted = append(res.Conflicted, id)
				continue
			}
			return res, fmt.Errorf("load order %s: %w", id, err)
		}
		if !o.Assignable() || !s.tracker.Begin(id) {
			res.Conflicted = append(res.Conflicted, id)
			continue
		}
		claimed = append(claimed, id)
		refs = append(refs, o.Ref())
	}

	if len(refs) > 0 {
		r, err := s.committer.Commit(ctx, refs, d, SourceManual)
		res.Assigned = r.Assigned
		res.Conflicted = append(res.Conflicted, r.Conflicted...)
		if err != nil && !errors.Is(err, order.ErrConflict) {
			return res, err
		}
	}
	if len(res.Conflicted) > 0 {
		return res, order.ErrConflict
	}
	return res, nil
}

func (s *Service) AutoPilot() bool {
	if s.dispatcher == nil {
		return false
	}
	return s.dispatcher.AutoPilot()
}

// SetAutoPilot persists the flag and applies it to the running dispatcher.
// Turning it on triggers an immediate sweep.
func (s *Service) SetAutoPilot(ctx context.Context, on bool) error {
	if s.store != nil {
		if err := s.store.SetAutoPilot(ctx, on); err != nil {
			return fmt.Errorf("persist auto-pilot: %w", err)
		}
	}
	if s.dispatcher != nil {
		s.dispatcher.SetAutoPilot(on)
		if on {
			s.dispatcher.Wake()
		}
	}
	return nil
}

// RestoreAutoPilot loads the persisted flag, falling back to def.
func (s *Service) RestoreAutoPilot(ctx context.Context, def bool) bool {
	on := def
	if s.store != nil {
		v, found, err := s.store.AutoPilot(ctx)
		if err != nil {
			log.Printf("matching: load auto-pilot flag: %v; using default %v", err, def)
		} else if found {
			on = v
		}
	}
	if s.dispatcher != nil {
		s.dispatcher.SetAutoPilot(on)
	}
	return on
}

func (s *Service) Status() DispatcherStatus {
	if s.dispatcher == nil {
		return DispatcherStatus{}
	}
	return s.dispatcher.Status()
}

func (s *Service) RecentAssignments(ctx context.Context, n int) ([]AuditEntry, error) {
	if s.store == nil {
		return nil, nil
	}
	return s.store.RecentAssignments(ctx, n)
}

// uniqueIDs drops repeated ids, keeping first-seen order.
func uniqueIDs(ids []types.ID) []types.ID {
	seen := make(map[types.ID]bool, len(ids))
	out := make([]types.ID, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
