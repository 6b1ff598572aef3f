package statemachine

import (
	"context"
	"fmt"
)

const defaultHandlerName = "unhandled"

// entry is one row of a dispatch table.
type entry[S State, I, O any] struct {
	handler Handler[S, I, O]
	name    string
	bound   bool
}

// buildTable produces the complete dispatch table for a definition.
// Every state starts on the default handler, then bindings are applied in
// registration order. A binding naming a state outside the domain aborts
// the build.
func buildTable[S State, I, O any](def *Definition[S, I, O]) (map[S]entry[S, I, O], error) {
	if def.domain.Len() == 0 {
		return nil, WrapStateError(def.name, "", ErrEmptyDomain)
	}

	fallback := entry[S, I, O]{
		handler: def.unhandled,
		name:    defaultHandlerName,
	}

	if fallback.handler == nil {
		fallback.handler = unhandled[S, I, O]
	}

	table := make(map[S]entry[S, I, O], def.domain.Len())
	for state := range def.domain.All() {
		table[state] = fallback
	}

	owners := make(map[S]int, def.domain.Len())

	for position, binding := range def.bindings {
		label := binding.label(position)

		if binding.handler == nil {
			return nil, &BindingError{Binding: label, Err: ErrNilHandler}
		}

		for _, state := range binding.states {
			if !def.domain.Contains(state) {
				return nil, &BindingError{Binding: label, State: state.String(), Err: ErrUnknownState}
			}

			if owner, claimed := owners[state]; claimed && owner != position &&
				def.duplicates == RejectDuplicates {
				return nil, &BindingError{
					Binding: label,
					State:   state.String(),
					Err:     fmt.Errorf("%w: already bound by %s", ErrDuplicateBinding, def.bindings[owner].label(owner)),
				}
			}

			owners[state] = position
			table[state] = entry[S, I, O]{
				handler: binding.handler,
				name:    label,
				bound:   true,
			}
		}
	}

	return table, nil
}

// unhandled is the default handler: it refuses the input and leaves the
// machine where it is.
func unhandled[S State, I, O any](_ context.Context, m *Machine[S, I, O], _ I) (Output[O], error) {
	return NoOutput[O](), WrapStateError(m.def.name, m.current.String(), ErrUnhandledState)
}
