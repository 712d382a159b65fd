// README: Ranker and selector tests, including the three-driver scenarios.
package matching

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"dispatchdesk/internal/modules/driver"
	"dispatchdesk/internal/modules/location"
	"dispatchdesk/internal/types"
)

var scenarioTarget = types.Point{Lat: 10.0, Lng: 78.0}

// scenarioDrivers builds D1 (near), D2 (far) and D3 (second nearest) with the given loads.
func scenarioDrivers(d1, d2, d3 int) []driver.Driver {
	return []driver.Driver{
		{ID: "D1", Name: "D1", Status: driver.StatusOnline, Position: types.Point{Lat: 10.01, Lng: 78.01}, ActiveOrders: d1},
		{ID: "D2", Name: "D2", Status: driver.StatusOnline, Position: types.Point{Lat: 10.5, Lng: 78.5}, ActiveOrders: d2},
		{ID: "D3", Name: "D3", Status: driver.StatusOnline, Position: types.Point{Lat: 10.02, Lng: 78.02}, ActiveOrders: d3},
	}
}

func candidateIDs(cs []Candidate) []types.ID {
	out := make([]types.ID, len(cs))
	for i, c := range cs {
		out[i] = c.Driver.ID
	}
	return out
}

func TestRank_ScenarioOrder(t *testing.T) {
	got := candidateIDs(Rank(scenarioTarget, scenarioDrivers(0, 0, 3)))
	want := []types.ID{"D1", "D3", "D2"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank order = %v, want %v", got, want)
		}
	}
}

func TestRank_NonDecreasing(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	for trial := 0; trial < 50; trial++ {
		drivers := make([]driver.Driver, 20)
		for i := range drivers {
			var pos types.Point
			if r.IntN(5) != 0 { // leave some drivers without a location
				pos = types.Point{Lat: 9 + r.Float64()*2, Lng: 77 + r.Float64()*2}
			}
			drivers[i] = driver.Driver{ID: types.ID(fmt.Sprintf("d%d", i)), Position: pos}
		}
		ranked := Rank(scenarioTarget, drivers)
		if len(ranked) != len(drivers) {
			t.Fatalf("ranker dropped drivers: %d of %d", len(ranked), len(drivers))
		}
		for i := 1; i < len(ranked); i++ {
			if ranked[i].DistanceKm < ranked[i-1].DistanceKm {
				t.Fatalf("trial %d: distances decrease at %d: %v > %v", trial, i, ranked[i-1].DistanceKm, ranked[i].DistanceKm)
			}
		}
	}
}

func TestRank_MissingLocationSortsLastInInputOrder(t *testing.T) {
	drivers := []driver.Driver{
		{ID: "nolocA"},
		{ID: "near", Position: types.Point{Lat: 10.01, Lng: 78.01}},
		{ID: "nolocB"},
	}
	ranked := Rank(scenarioTarget, drivers)
	got := candidateIDs(ranked)
	want := []types.ID{"near", "nolocA", "nolocB"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("rank order = %v, want %v", got, want)
		}
	}
	if ranked[1].DistanceKm != location.SentinelDistanceKm {
		t.Fatalf("expected sentinel distance, got %v", ranked[1].DistanceKm)
	}
}

func TestRank_Empty(t *testing.T) {
	if got := Rank(scenarioTarget, nil); len(got) != 0 {
		t.Fatalf("expected empty ranking, got %v", got)
	}
}

// fixedRand always returns the same index (clamped to n-1).
type fixedRand int

func (f fixedRand) IntN(n int) int {
	if int(f) >= n {
		return n - 1
	}
	return int(f)
}

func TestSelect_NearestFree(t *testing.T) {
	sel, ok := NewSelector(fixedRand(0)).Select(scenarioTarget, scenarioDrivers(0, 0, 3))
	if !ok {
		t.Fatal("expected a selection")
	}
	if sel.Driver.ID != "D1" || sel.Fallback {
		t.Fatalf("expected D1 without fallback, got %+v", sel)
	}
}

func TestSelect_FreeDriverBeatsCloserBusyOnes(t *testing.T) {
	sel, ok := NewSelector(fixedRand(0)).Select(scenarioTarget, scenarioDrivers(2, 0, 1))
	if !ok {
		t.Fatal("expected a selection")
	}
	if sel.Driver.ID != "D2" || sel.Fallback {
		t.Fatalf("expected D2 (only free driver), got %+v", sel)
	}
}

func TestSelect_FreeIsMinimumDistanceAmongFree(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 4))
	for trial := 0; trial < 100; trial++ {
		drivers := make([]driver.Driver, 8)
		for i := range drivers {
			drivers[i] = driver.Driver{
				ID:           types.ID(fmt.Sprintf("d%d", i)),
				Position:     types.Point{Lat: 9 + r.Float64()*2, Lng: 77 + r.Float64()*2},
				ActiveOrders: r.IntN(3),
			}
		}
		drivers[r.IntN(len(drivers))].ActiveOrders = 0

		sel, ok := NewSelector(nil).Select(scenarioTarget, drivers)
		if !ok || sel.Fallback {
			t.Fatalf("trial %d: expected a free selection, got ok=%v %+v", trial, ok, sel)
		}
		if sel.Driver.ActiveOrders != 0 {
			t.Fatalf("trial %d: selected a busy driver %+v", trial, sel.Driver)
		}
		for _, d := range drivers {
			if d.ActiveOrders == 0 && location.DistanceKm(d.Position, scenarioTarget) < sel.DistanceKm {
				t.Fatalf("trial %d: free driver %s is closer than selection %s", trial, d.ID, sel.Driver.ID)
			}
		}
	}
}

func TestSelect_AllBusyUsesRandomSource(t *testing.T) {
	// Ranked order is D1, D3, D2; index 2 is D2.
	sel, ok := NewSelector(fixedRand(2)).Select(scenarioTarget, scenarioDrivers(1, 4, 3))
	if !ok {
		t.Fatal("expected a selection")
	}
	if sel.Driver.ID != "D2" || !sel.Fallback {
		t.Fatalf("expected fallback pick D2, got %+v", sel)
	}
}

func TestSelect_AllBusyMembership(t *testing.T) {
	drivers := scenarioDrivers(1, 1, 1)
	members := map[types.ID]bool{"D1": true, "D2": true, "D3": true}
	for i := 0; i < 3; i++ {
		sel, ok := NewSelector(fixedRand(i)).Select(scenarioTarget, drivers)
		if !ok || !members[sel.Driver.ID] {
			t.Fatalf("selection %+v is not a member of the online set", sel)
		}
	}
}

func TestSelect_NoDriversIsNoop(t *testing.T) {
	sel, ok := NewSelector(nil).Select(scenarioTarget, nil)
	if ok {
		t.Fatalf("expected no selection, got %+v", sel)
	}
}

// TestSelect_AllBusyDistribution checks the fallback is roughly uniform.
func TestSelect_AllBusyDistribution(t *testing.T) {
	drivers := scenarioDrivers(2, 1, 3)
	sel := NewSelector(nil)
	counts := map[types.ID]int{}
	const runs = 3000
	for i := 0; i < runs; i++ {
		s, ok := sel.Select(scenarioTarget, drivers)
		if !ok {
			t.Fatal("expected a selection")
		}
		counts[s.Driver.ID]++
	}
	// Expect ~1000 each; allow generous bounds to avoid flakiness.
	for _, id := range []types.ID{"D1", "D2", "D3"} {
		if c := counts[id]; c < 800 || c > 1200 {
			t.Errorf("driver %s picked %d times, want roughly %d", id, c, runs/3)
		}
	}
}
