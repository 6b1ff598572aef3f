package statemachine

import (
	"slices"
	"strconv"
)

// Binding attaches a handler to the states it answers for. Creating a
// binding performs no validation: the states are checked against the
// machine's domain when a machine is built.
type Binding[S State, I, O any] struct {
	name    string
	states  []S
	handler Handler[S, I, O]
}

// Bind marks handler as the handler for the given states. One state or many
// may be given; listing the same state twice in one binding is harmless.
func Bind[S State, I, O any](handler Handler[S, I, O], states ...S) Binding[S, I, O] {
	return Binding[S, I, O]{
		states:  slices.Clone(states),
		handler: handler,
	}
}

// Named returns a copy of the binding carrying a name. Names show up in logs,
// errors and diagrams; unnamed bindings are numbered by registration order.
func (b Binding[S, I, O]) Named(name string) Binding[S, I, O] {
	b.name = name

	return b
}

// Name returns the binding's name, or "" if it was never named.
func (b Binding[S, I, O]) Name() string {
	return b.name
}

// States returns the states the binding answers for, in the order given.
func (b Binding[S, I, O]) States() []S {
	return slices.Clone(b.states)
}

// Handler returns the bound handler.
func (b Binding[S, I, O]) Handler() Handler[S, I, O] {
	return b.handler
}

func (b Binding[S, I, O]) label(position int) string {
	if b.name != "" {
		return b.name
	}

	return "#" + strconv.Itoa(position)
}
