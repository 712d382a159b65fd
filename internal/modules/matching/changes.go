package matching

import (
	"sync"

	"dispatchdesk/internal/types"
)

// ChangeDetector remembers the previous set of assignable order ids and
// reports newcomers. The first observation only primes it.
type ChangeDetector struct {
	mu     sync.Mutex
	prev   map[types.ID]struct{}
	primed bool
}

func NewChangeDetector() *ChangeDetector {
	return &ChangeDetector{prev: make(map[types.ID]struct{})}
}

// Observe replaces the previous set with ids and returns ids \ previous in
// input order. notify is false on the first observation.
func (d *ChangeDetector) Observe(ids []types.ID) (added []types.ID, notify bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := make(map[types.ID]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := next[id]; dup {
			continue
		}
		next[id] = struct{}{}
		if _, seen := d.prev[id]; !seen {
			added = append(added, id)
		}
	}
	first := !d.primed
	d.prev = next
	d.primed = true
	return added, !first && len(added) > 0
}
