package matching

import (
	"sync"

	"dispatchdesk/internal/types"
)

type AssignState int

const (
	StateIdle AssignState = iota
	StateAssigning
	StateAssigned
)

func (s AssignState) String() string {
	switch s {
	case StateAssigning:
		return "assigning"
	case StateAssigned:
		return "assigned"
	default:
		return "idle"
	}
}

// Tracker tags orders that are being or have been assigned by this process.
// Only idle orders may start an assignment.
type Tracker struct {
	mu     sync.Mutex
	states map[types.ID]AssignState
}

func NewTracker() *Tracker {
	return &Tracker{states: make(map[types.ID]AssignState)}
}

// Begin moves an idle order to assigning. It returns false if the order is
// already assigning or assigned.
func (t *Tracker) Begin(id types.ID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.states[id] != StateIdle {
		return false
	}
	t.states[id] = StateAssigning
	return true
}

// Finish ends an assignment attempt; a failed attempt returns the order to idle.
func (t *Tracker) Finish(id types.ID, assigned bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if assigned {
		t.states[id] = StateAssigned
		return
	}
	delete(t.states, id)
}

func (t *Tracker) State(id types.ID) AssignState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.states[id]
}

// Prune forgets assigned orders that are no longer in the assignable set.
// Orders still assigning are kept.
func (t *Tracker) Prune(assignable []types.ID) {
	keep := make(map[types.ID]bool, len(assignable))
	for _, id := range assignable {
		keep[id] = true
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, st := range t.states {
		if st == StateAssigned && !keep[id] {
			delete(t.states, id)
		}
	}
}

func (t *Tracker) InFlight() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, st := range t.states {
		if st == StateAssigning {
			n++
		}
	}
	return n
}
