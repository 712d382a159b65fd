package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"dispatchdesk/internal/types"
)

type memPositionStore struct {
	saved  map[types.ID]types.Point
	geo    map[types.ID]types.Point
	geoErr error
	dbErr  error
}

func newMemPositionStore() *memPositionStore {
	return &memPositionStore{saved: map[types.ID]types.Point{}, geo: map[types.ID]types.Point{}}
}

func (m *memPositionStore) SavePosition(_ context.Context, id types.ID, pos types.Point, _ time.Time) error {
	if m.dbErr != nil {
		return m.dbErr
	}
	m.saved[id] = pos
	return nil
}

func (m *memPositionStore) SetGeo(_ context.Context, id types.ID, pos types.Point) error {
	if m.geoErr != nil {
		return m.geoErr
	}
	m.geo[id] = pos
	return nil
}

func (m *memPositionStore) RemoveGeo(_ context.Context, id types.ID) error {
	delete(m.geo, id)
	return nil
}

func (m *memPositionStore) Nearby(_ context.Context, p types.Point, radiusKm float64) ([]Nearby, error) {
	var out []Nearby
	for id, pos := range m.geo {
		if d := DistanceKm(p, pos); d <= radiusKm {
			out = append(out, Nearby{DriverID: id, Position: pos, DistanceKm: d})
		}
	}
	SortByDistance(out, func(n Nearby) float64 { return n.DistanceKm })
	return out, nil
}

func TestUpdate_StoresPositionAndGeo(t *testing.T) {
	store := newMemPositionStore()
	svc := &Service{store: store, now: time.Now}

	pos := types.Point{Lat: 10.01, Lng: 78.01}
	if err := svc.Update(context.Background(), Update{DriverID: "d1", Position: pos}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if store.saved["d1"] != pos || store.geo["d1"] != pos {
		t.Fatalf("position not stored: %+v %+v", store.saved, store.geo)
	}
}

func TestUpdate_RejectsInvalidPositions(t *testing.T) {
	svc := &Service{store: newMemPositionStore(), now: time.Now}
	cases := []Update{
		{DriverID: "", Position: types.Point{Lat: 10, Lng: 78}},
		{DriverID: "d1", Position: types.Point{}},
		{DriverID: "d1", Position: types.Point{Lat: 91, Lng: 78}},
		{DriverID: "d1", Position: types.Point{Lat: 10, Lng: 181}},
	}
	for _, u := range cases {
		if err := svc.Update(context.Background(), u); !errors.Is(err, ErrInvalidPosition) {
			t.Errorf("Update(%+v) = %v, want ErrInvalidPosition", u, err)
		}
	}
}

func TestUpdate_GeoFailureIsNotFatal(t *testing.T) {
	store := newMemPositionStore()
	store.geoErr = errors.New("redis down")
	svc := &Service{store: store, now: time.Now}

	if err := svc.Update(context.Background(), Update{DriverID: "d1", Position: types.Point{Lat: 10, Lng: 78}}); err != nil {
		t.Fatalf("expected geo failure to be swallowed, got %v", err)
	}
}

func TestUpdate_DatabaseFailurePropagates(t *testing.T) {
	store := newMemPositionStore()
	store.geo["ghost"] = types.Point{Lat: 10, Lng: 78}
	store.dbErr = ErrUnknownDriver
	svc := &Service{store: store, now: time.Now}

	err := svc.Update(context.Background(), Update{DriverID: "ghost", Position: types.Point{Lat: 10, Lng: 78}})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("expected ErrUnknownDriver, got %v", err)
	}
	if _, ok := store.geo["ghost"]; ok {
		t.Fatal("stale geo entry should be removed")
	}
}

func TestNearby_SortedByDistance(t *testing.T) {
	store := newMemPositionStore()
	store.geo["far"] = types.Point{Lat: 10.5, Lng: 78.5}
	store.geo["near"] = types.Point{Lat: 10.01, Lng: 78.01}
	svc := &Service{store: store, now: time.Now}

	got, err := svc.Nearby(context.Background(), types.Point{Lat: 10.0, Lng: 78.0}, 100)
	if err != nil {
		t.Fatalf("nearby: %v", err)
	}
	if len(got) != 2 || got[0].DriverID != "near" || got[1].DriverID != "far" {
		t.Fatalf("unexpected nearby result: %+v", got)
	}
}
