package statemachine

import (
	"context"
	"fmt"
)

// State is the constraint every state domain satisfies. Concrete machines
// declare their own named type (usually an int enum with a String method)
// so that a state from one machine can never be passed to another.
type State interface {
	comparable
	fmt.Stringer
}

// Handler answers inputs for the states it is bound to. It may call
// m.Transition to move the machine or m.Stay to hold it, and returns the
// output for this input (or NoOutput).
type Handler[S State, I, O any] func(ctx context.Context, m *Machine[S, I, O], input I) (Output[O], error)

// StayHook is invoked whenever a handler calls Stay.
type StayHook[S State, I, O any] func(ctx context.Context, m *Machine[S, I, O], input I)

// Ignore returns a handler that holds the current state and produces no
// output. Bind it to a state to silence the unhandled default for that state.
func Ignore[S State, I, O any]() Handler[S, I, O] {
	return func(ctx context.Context, m *Machine[S, I, O], input I) (Output[O], error) {
		m.Stay(ctx, input)

		return NoOutput[O](), nil
	}
}
