package statemachine

import (
	"iter"
	"slices"
)

// Domain is the closed, ordered set of states a machine can occupy.
// It is fixed when the machine type is defined and never changes afterwards.
type Domain[S State] struct {
	states []S
	index  map[S]int
}

// NewDomain creates a domain from the given states. Repeated values are
// collapsed; the first occurrence keeps its position.
func NewDomain[S State](states ...S) Domain[S] {
	d := Domain[S]{
		states: make([]S, 0, len(states)),
		index:  make(map[S]int, len(states)),
	}

	for _, s := range states {
		if _, ok := d.index[s]; ok {
			continue
		}

		d.index[s] = len(d.states)
		d.states = append(d.states, s)
	}

	return d
}

// Contains reports whether s belongs to the domain.
func (d Domain[S]) Contains(s S) bool {
	_, ok := d.index[s]

	return ok
}

// Len returns the number of states in the domain.
func (d Domain[S]) Len() int {
	return len(d.states)
}

// States returns a copy of the states in declaration order.
func (d Domain[S]) States() []S {
	return slices.Clone(d.states)
}

// All iterates over the states in declaration order.
func (d Domain[S]) All() iter.Seq[S] {
	return slices.Values(d.states)
}
