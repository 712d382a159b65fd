// README: Order service implements driver assignment and status transitions.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"dispatchdesk/internal/types"
)

const defaultCurrency = "INR"

var (
	ErrInvalidState = errors.New("invalid state transition")
	ErrNotFound     = errors.New("order not found")
	ErrConflict     = errors.New("order already claimed or changed")
	ErrBadRequest   = errors.New("bad request")
)

type store interface {
	Get(ctx context.Context, id types.ID) (*Order, error)
	ListAssignable(ctx context.Context) ([]*Order, error)
	CountActiveByDriver(ctx context.Context) (map[string]int, error)
	AssignDriver(ctx context.Context, ref Ref, name, phone string, at time.Time) (bool, error)
	UpdateStatus(ctx context.Context, id types.ID, from, to Status, at time.Time) (bool, error)
}

type Service struct {
	store store
	now   func() time.Time
}

func NewService(store *Store) *Service {
	return &Service{store: store, now: time.Now}
}

// newServiceWithStore is used by tests to inject an in-memory store.
func newServiceWithStore(st store) *Service {
	return &Service{store: st, now: time.Now}
}

type AssignCommand struct {
	Orders      []Ref
	DriverName  string
	DriverPhone string
}

type CancelCommand struct {
	OrderID types.ID
	Reason  string
}

type AdvanceCommand struct {
	OrderID types.ID
	To      Status
}

// AssignResult lists which orders were claimed and which lost the race.
type AssignResult struct {
	Assigned   []types.ID
	Conflicted []types.ID
}

func (s *Service) Get(ctx context.Context, id types.ID) (*Order, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) ListAssignable(ctx context.Context) ([]*Order, error) {
	return s.store.ListAssignable(ctx)
}

func (s *Service) CountActiveByDriver(ctx context.Context) (map[string]int, error) {
	return s.store.CountActiveByDriver(ctx)
}

// Assign issues one conditional update per order. Orders that another actor
// claimed first are reported in Conflicted and the call returns ErrConflict;
// the remaining orders are still attempted. A backend error stops the batch.
func (s *Service) Assign(ctx context.Context, cmd AssignCommand) (AssignResult, error) {
	var res AssignResult
	name := strings.TrimSpace(cmd.DriverName)
	if len(cmd.Orders) == 0 || name == "" {
		return res, ErrBadRequest
	}
	now := s.now()
	for _, ref := range cmd.Orders {
		if ref.Status != StatusConfirmed && ref.Status != StatusPaid {
			res.Conflicted = append(res.Conflicted, ref.ID)
			continue
		}
		ok, err := s.store.AssignDriver(ctx, ref, name, strings.TrimSpace(cmd.DriverPhone), now)
		if err != nil {
			return res, fmt.Errorf("assign order %s: %w", ref.ID, err)
		}
		if !ok {
			res.Conflicted = append(res.Conflicted, ref.ID)
			continue
		}
		res.Assigned = append(res.Assigned, ref.ID)
	}
	if len(res.Conflicted) > 0 {
		return res, ErrConflict
	}
	return res, nil
}

func (s *Service) Cancel(ctx context.Context, cmd CancelCommand) error {
	return s.transition(ctx, cmd.OrderID, StatusCancelled)
}

func (s *Service) Advance(ctx context.Context, cmd AdvanceCommand) error {
	to := NormalizeStatus(string(cmd.To))
	if !to.Known() {
		return ErrBadRequest
	}
	return s.transition(ctx, cmd.OrderID, to)
}

func (s *Service) transition(ctx context.Context, id types.ID, to Status) error {
	if id == "" {
		return ErrBadRequest
	}
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if !CanTransition(o.Status, to) {
		return ErrInvalidState
	}
	ok, err := s.store.UpdateStatus(ctx, o.ID, o.Status, to, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrConflict
	}
	return nil
}
