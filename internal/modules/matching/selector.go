package matching

import (
	"math/rand/v2"

	"dispatchdesk/internal/modules/driver"
	"dispatchdesk/internal/types"
)

// RandSource picks an index in [0, n).
type RandSource interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// Selector implements the auto-pilot policy: the nearest driver with no
// active orders, otherwise a uniformly random online driver.
type Selector struct {
	rand RandSource
}

func NewSelector(r RandSource) *Selector {
	if r == nil {
		r = globalRand{}
	}
	return &Selector{rand: r}
}

// Select returns false when there are no drivers; the order simply waits
// for the next tick.
//
// The fallback draws from the whole ranked set without weighting by load.
func (s *Selector) Select(target types.Point, drivers []driver.Driver) (Selection, bool) {
	ranked := Rank(target, drivers)
	if len(ranked) == 0 {
		return Selection{}, false
	}
	for _, c := range ranked {
		if c.Driver.Free() {
			return Selection{Candidate: c}, true
		}
	}
	return Selection{Candidate: ranked[s.rand.IntN(len(ranked))], Fallback: true}, true
}
