// README: Driver service returns online drivers with their current load.
package driver

import (
	"context"
	"fmt"

	"dispatchdesk/internal/types"
)

// LoadCounter reports active orders per driver name.
type LoadCounter interface {
	CountActiveByDriver(ctx context.Context) (map[string]int, error)
}

type store interface {
	ListOnline(ctx context.Context) ([]Driver, error)
	Get(ctx context.Context, id types.ID) (Driver, error)
}

type Service struct {
	store store
	load  LoadCounter
}

func NewService(store *Store, load LoadCounter) *Service {
	return &Service{store: store, load: load}
}

// ListOnline returns drivers whose status is online, each with ActiveOrders
// recomputed from the orders table.
func (s *Service) ListOnline(ctx context.Context) ([]Driver, error) {
	drivers, err := s.store.ListOnline(ctx)
	if err != nil {
		return nil, fmt.Errorf("list online drivers: %w", err)
	}
	if len(drivers) == 0 {
		return drivers, nil
	}
	counts, err := s.load.CountActiveByDriver(ctx)
	if err != nil {
		return nil, fmt.Errorf("count active orders: %w", err)
	}
	out := drivers[:0]
	for _, d := range drivers {
		if d.Status != StatusOnline {
			continue
		}
		d.ActiveOrders = counts[d.Name]
		out = append(out, d)
	}
	return out, nil
}

// Get returns a driver with its current load filled in.
func (s *Service) Get(ctx context.Context, id types.ID) (Driver, error) {
	d, err := s.store.Get(ctx, id)
	if err != nil {
		return Driver{}, err
	}
	counts, err := s.load.CountActiveByDriver(ctx)
	if err != nil {
		return Driver{}, fmt.Errorf("count active orders: %w", err)
	}
	d.ActiveOrders = counts[d.Name]
	return d, nil
}
