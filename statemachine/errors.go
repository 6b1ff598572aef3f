package statemachine

import (
	"errors"
	"fmt"
)

// Predefined error types.
var (
	// ErrUnknownState indicates a state that is not part of the machine's domain.
	// It is raised while building a machine (a binding or the start state names a
	// foreign state) and never leaves a usable machine behind.
	ErrUnknownState = errors.New("unknown state")
	// ErrUnhandledState indicates that an input reached a state with no handler bound to it.
	ErrUnhandledState = errors.New("unhandled state")
	// ErrDuplicateBinding indicates that two bindings claim the same state.
	ErrDuplicateBinding = errors.New("duplicate binding")
	// ErrEmptyDomain indicates a definition without any state.
	ErrEmptyDomain = errors.New("state domain is empty")
	// ErrNilHandler indicates a binding without a handler function.
	ErrNilHandler = errors.New("handler is nil")

	// ErrConfigNameRequired indicates that a configuration name is required.
	ErrConfigNameRequired = errors.New("config name is required")
	// ErrStateRequired indicates that at least one state is required.
	ErrStateRequired = errors.New("at least one state is required")
	// ErrStateNameRequired indicates that a state name is required.
	ErrStateNameRequired = errors.New("state name is required")
	// ErrDuplicateStateName indicates that a duplicate state name was found.
	ErrDuplicateStateName = errors.New("duplicate state name")
	// ErrInitialStateRequired indicates that an initial state is required.
	ErrInitialStateRequired = errors.New("initial state is required")
	// ErrInitialStateNotFound indicates that the initial state does not exist.
	ErrInitialStateNotFound = errors.New("initial state does not exist")
	// ErrHandlerStatesRequired indicates a handler bound to no state at all.
	ErrHandlerStatesRequired = errors.New("handler must be bound to at least one state")
	// ErrRuleInputRequired indicates a rule without an input to match.
	ErrRuleInputRequired = errors.New("rule input is required")
	// ErrTransitionToNotFound indicates that a rule moves to a state that does not exist.
	ErrTransitionToNotFound = errors.New("transition to state does not exist")
	// ErrInvalidOtherwise indicates an unknown fallback mode for unmatched inputs.
	ErrInvalidOtherwise = errors.New("invalid otherwise mode")
	// ErrNoConfigLoader indicates that no config loader is registered.
	ErrNoConfigLoader = errors.New("no config loader registered; use SetConfigLoader() or provide a file path")
)

// StateError wraps an error with state context.
type StateError struct {
	Machine string
	State   string
	Err     error
}

func (e *StateError) Error() string {
	if e.Machine == "" {
		return fmt.Sprintf("state %s: %v", e.State, e.Err)
	}

	return fmt.Sprintf("%s: state %s: %v", e.Machine, e.State, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// BindingError reports a problem with one of a definition's bindings.
type BindingError struct {
	Binding string
	State   string
	Err     error
}

func (e *BindingError) Error() string {
	if e.State == "" {
		return fmt.Sprintf("binding %s: %v", e.Binding, e.Err)
	}

	return fmt.Sprintf("binding %s: state %s: %v", e.Binding, e.State, e.Err)
}

func (e *BindingError) Unwrap() error {
	return e.Err
}

// WrapStateError wraps an error with state context.
func WrapStateError(machine, state string, err error) error {
	if err == nil {
		return nil
	}

	return &StateError{
		Machine: machine,
		State:   state,
		Err:     err,
	}
}
