package statemachine

import (
	"context"
	"sync"
)

// SyncMachine serializes access to a Machine so it can be shared between
// goroutines. Handlers still receive the inner *Machine, so calling
// Transition or Stay from a handler does not re-enter the lock.
type SyncMachine[S State, I, O any] struct {
	mu      sync.Mutex
	machine *Machine[S, I, O]
}

// Synchronized wraps m with a per-instance mutex.
func Synchronized[S State, I, O any](m *Machine[S, I, O]) *SyncMachine[S, I, O] {
	return &SyncMachine[S, I, O]{machine: m}
}

// Dispatch is the serialized counterpart of Machine.Dispatch.
func (s *SyncMachine[S, I, O]) Dispatch(ctx context.Context, input I) (Output[O], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.machine.Dispatch(ctx, input)
}

// CurrentState is the serialized counterpart of Machine.CurrentState.
func (s *SyncMachine[S, I, O]) CurrentState() S {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.machine.CurrentState()
}

// Transition is the serialized counterpart of Machine.Transition.
func (s *SyncMachine[S, I, O]) Transition(next S) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.machine.Transition(next)
}

// ID returns the wrapped machine's instance id.
func (s *SyncMachine[S, I, O]) ID() string {
	return s.machine.ID()
}
