// Package dispatch implements the Dispatcher of spec §4.3: a stateless
// selection function over a set of instances, never itself holding a lock
// or mutating instance state. Callers are responsible for running Select
// under the same lock that guards the instance table, so selection and the
// caller's subsequent MarkRunning happen atomically.
package dispatch

import (
	"sort"

	"github.com/honygo/ocrpool/pkg/types"
)

// Candidate is the minimal view of an instance the Dispatcher needs:
// identity, current status, and load score.
type Candidate interface {
	ID() string
	Status() types.InstanceStatus
	LoadScore() float64
}

// Select returns the lowest-load-score instance among those in
// instances that are READY or IDLE, breaking ties lexicographically by ID
// for determinism. The boolean is false (and the returned value is C's zero
// value) if no instance is eligible.
func Select[C Candidate](instances []C) (C, bool) {
	var best C
	found := false

	for _, c := range instances {
		if !c.Status().DispatchEligible() {
			continue
		}
		if !found {
			best = c
			found = true
			continue
		}
		if better(c, best) {
			best = c
		}
	}
	return best, found
}

func better[C Candidate](a, b C) bool {
	sa, sb := a.LoadScore(), b.LoadScore()
	if sa != sb {
		return sa < sb
	}
	return a.ID() < b.ID()
}

// SelectMany returns every eligible instance sorted best-first, used by
// callers (e.g. the pool manager's shrink path) that need a ranked list
// rather than a single winner.
func SelectMany[C Candidate](instances []C) []C {
	eligible := make([]C, 0, len(instances))
	for _, c := range instances {
		if c.Status().DispatchEligible() {
			eligible = append(eligible, c)
		}
	}
	sort.Slice(eligible, func(i, j int) bool { return better(eligible[i], eligible[j]) })
	return eligible
}
