package validator

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/amp-labs/amp-fsm/statemachine"
)

var (
	// ErrStateAlreadyExists is returned when declaring a state that is already declared.
	ErrStateAlreadyExists = errors.New("state already exists")
	// ErrStateAlreadyBound is returned when adding a handler for a state that already has one.
	ErrStateAlreadyBound = errors.New("state already bound")
	// ErrHandlerNotFound is returned when a fix targets a handler that doesn't exist.
	ErrHandlerNotFound = errors.New("handler not found")
	// ErrRuleNotFound is returned when a fix targets a rule that doesn't exist.
	ErrRuleNotFound = errors.New("rule not found")
)

// Fix represents an automatic fix for a validation issue.
type Fix struct {
	Description string
	Apply       func(config *statemachine.Config) error

	// Set for rule removals, which ApplyFixes orders so indexes stay valid.
	handler string
	rule    int
}

// DeclareState creates a fix that adds a state to the config's domain.
func DeclareState(state string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Declare state '%s'", state),
		Apply: func(config *statemachine.Config) error {
			if config.HasState(state) {
				return fmt.Errorf("%w: %s", ErrStateAlreadyExists, state)
			}

			config.States = append(config.States, state)

			return nil
		},
	}
}

// IgnoreState creates a fix that binds a handler ignoring every input to
// an unhandled state.
func IgnoreState(state string) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Bind a handler that ignores every input in '%s'", state),
		Apply: func(config *statemachine.Config) error {
			for _, handler := range config.Handlers {
				if slices.Contains(handler.States, state) {
					return fmt.Errorf("%w: %s", ErrStateAlreadyBound, state)
				}
			}

			config.Handlers = append(config.Handlers, statemachine.HandlerConfig{
				Name:      "ignore_" + state,
				States:    []string{state},
				Otherwise: statemachine.OtherwiseIgnore,
			})

			return nil
		},
	}
}

// RemoveRule creates a fix that deletes a rule from a handler.
func RemoveRule(handler string, rule int) *Fix {
	return &Fix{
		Description: fmt.Sprintf("Remove rule %d from handler '%s'", rule, handler),
		handler:     handler,
		rule:        rule,
		Apply: func(config *statemachine.Config) error {
			for i := range config.Handlers {
				if handlerName(config, i) != handler {
					continue
				}

				rules := config.Handlers[i].Rules
				if rule < 0 || rule >= len(rules) {
					return fmt.Errorf("%w: %s[%d]", ErrRuleNotFound, handler, rule)
				}

				config.Handlers[i].Rules = slices.Delete(slices.Clone(rules), rule, rule+1)

				return nil
			}

			return fmt.Errorf("%w: %s", ErrHandlerNotFound, handler)
		},
	}
}

func (f *Fix) removesRule() bool {
	return f.handler != ""
}

// ApplyFixes applies every available fix in the result and returns how many
// were applied. Errors are fixed before warnings. Rule removals run last,
// per handler from the highest index down, whether strict mode reported them
// as errors or warnings. It stops at the first fix that fails.
func ApplyFixes(config *statemachine.Config, result ValidationResult) (int, error) {
	var fixes, removals []*Fix

	collect := func(fix *Fix) {
		switch {
		case fix == nil:
		case fix.removesRule():
			removals = append(removals, fix)
		default:
			fixes = append(fixes, fix)
		}
	}

	for _, err := range result.Errors {
		collect(err.Fix)
	}

	for _, warning := range result.Warnings {
		collect(warning.Fix)
	}

	slices.SortStableFunc(removals, func(a, b *Fix) int {
		if c := cmp.Compare(a.handler, b.handler); c != 0 {
			return c
		}

		return cmp.Compare(b.rule, a.rule)
	})

	removals = slices.CompactFunc(removals, func(a, b *Fix) bool {
		return a.handler == b.handler && a.rule == b.rule
	})

	applied := 0

	for _, fix := range append(fixes, removals...) {
		if err := fix.Apply(config); err != nil {
			return applied, fmt.Errorf("fix %q: %w", fix.Description, err)
		}

		applied++
	}

	return applied, nil
}
