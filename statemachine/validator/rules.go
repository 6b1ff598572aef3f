//nolint:lll // Long validation messages
package validator

import (
	"fmt"

	"github.com/amp-labs/amp-fsm/statemachine"
)

// Severity defines the severity level of a validation issue.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// RuleResult contains both errors and warnings from a rule check.
type RuleResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

// Rule defines a validation rule that can check a config for specific issues.
type Rule interface {
	Name() string
	Severity() Severity
	Check(config *statemachine.Config) RuleResult
}

// DefaultRules returns the standard set of validation rules.
func DefaultRules() []Rule {
	return []Rule{
		&unknownBindingStateRule{},
		&duplicateBindingRule{},
		&unhandledStateRule{},
		&unreachableStateRule{},
		&shadowedRuleRule{},
	}
}

func handlerName(config *statemachine.Config, i int) string {
	if name := config.Handlers[i].Name; name != "" {
		return name
	}

	return fmt.Sprintf("handler_%d", i)
}

// unknownBindingStateRule finds handlers bound to undeclared states. Such a
// config loads fine but every attempt to build a machine from it fails.
// Each undeclared state is reported once, at its first binding.
type unknownBindingStateRule struct{}

func (r *unknownBindingStateRule) Name() string {
	return "UnknownBindingState"
}

func (r *unknownBindingStateRule) Severity() Severity {
	return SeverityError
}

func (r *unknownBindingStateRule) Check(config *statemachine.Config) RuleResult {
	var errors []ValidationError

	reported := make(map[string]bool)

	for i, handler := range config.Handlers {
		for _, state := range handler.States {
			if config.HasState(state) || reported[state] {
				continue
			}

			reported[state] = true

			errors = append(errors, ValidationError{
				Code:     "UNKNOWN_BINDING_STATE",
				Message:  fmt.Sprintf("Handler '%s' is bound to state '%s', which is not declared", handlerName(config, i), state),
				Location: Location{State: state, Handler: handlerName(config, i), Rule: -1},
				Fix:      DeclareState(state),
			})
		}
	}

	return RuleResult{Errors: errors}
}

// duplicateBindingRule finds states claimed by more than one handler.
type duplicateBindingRule struct{}

func (r *duplicateBindingRule) Name() string {
	return "DuplicateBinding"
}

func (r *duplicateBindingRule) Severity() Severity {
	return SeverityError
}

func (r *duplicateBindingRule) Check(config *statemachine.Config) RuleResult {
	var errors []ValidationError

	owners := make(map[string]int)

	for i, handler := range config.Handlers {
		for _, state := range handler.States {
			owner, claimed := owners[state]
			if claimed && owner != i {
				errors = append(errors, ValidationError{
					Code: "DUPLICATE_BINDING",
					Message: fmt.Sprintf("State '%s' is bound by both '%s' and '%s'",
						state, handlerName(config, owner), handlerName(config, i)),
					Location: Location{State: state, Handler: handlerName(config, i), Rule: -1},
				})

				continue
			}

			owners[state] = i
		}
	}

	return RuleResult{Errors: errors}
}

// unhandledStateRule warns about states that fall back to the unhandled default.
type unhandledStateRule struct{}

func (r *unhandledStateRule) Name() string {
	return "UnhandledState"
}

func (r *unhandledStateRule) Severity() Severity {
	return SeverityWarning
}

func (r *unhandledStateRule) Check(config *statemachine.Config) RuleResult {
	var warnings []ValidationWarning

	bound := make(map[string]bool)

	for _, handler := range config.Handlers {
		for _, state := range handler.States {
			bound[state] = true
		}
	}

	for _, state := range config.States {
		if bound[state] {
			continue
		}

		warnings = append(warnings, ValidationWarning{
			Code:     "UNHANDLED_STATE",
			Message:  fmt.Sprintf("State '%s' has no handler; every input dispatched there fails as unhandled", state),
			Location: Location{State: state, Rule: -1},
			Fix:      IgnoreState(state),
		})
	}

	return RuleResult{Warnings: warnings}
}

// unreachableStateRule warns about states no rule ever moves to.
type unreachableStateRule struct{}

func (r *unreachableStateRule) Name() string {
	return "UnreachableState"
}

func (r *unreachableStateRule) Severity() Severity {
	return SeverityWarning
}

func (r *unreachableStateRule) Check(config *statemachine.Config) RuleResult {
	var warnings []ValidationWarning

	graph := Edges(config)

	reachable := map[string]bool{config.InitialState: true}
	queue := []string{config.InitialState}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, edge := range graph {
			if edge.From == current && !reachable[edge.To] {
				reachable[edge.To] = true
				queue = append(queue, edge.To)
			}
		}
	}

	for _, state := range config.States {
		if reachable[state] {
			continue
		}

		warnings = append(warnings, ValidationWarning{
			Code:     "UNREACHABLE_STATE",
			Message:  fmt.Sprintf("State '%s' cannot be reached from initial state '%s'", state, config.InitialState),
			Location: Location{State: state, Rule: -1},
		})
	}

	return RuleResult{Warnings: warnings}
}

// shadowedRuleRule warns about rules that can never match because an
// earlier rule of the same handler takes the same input.
type shadowedRuleRule struct{}

func (r *shadowedRuleRule) Name() string {
	return "ShadowedRule"
}

func (r *shadowedRuleRule) Severity() Severity {
	return SeverityWarning
}

func (r *shadowedRuleRule) Check(config *statemachine.Config) RuleResult {
	var warnings []ValidationWarning

	for i, handler := range config.Handlers {
		seen := make(map[string]int)

		for j, rule := range handler.Rules {
			first, ok := seen[rule.Input]
			if !ok {
				seen[rule.Input] = j

				continue
			}

			warnings = append(warnings, ValidationWarning{
				Code: "SHADOWED_RULE",
				Message: fmt.Sprintf("Rule %d of handler '%s' never matches: rule %d already takes input '%s'",
					j, handlerName(config, i), first, rule.Input),
				Location: Location{Handler: handlerName(config, i), Rule: j},
				Fix:      RemoveRule(handlerName(config, i), j),
			})
		}
	}

	return RuleResult{Warnings: warnings}
}

// Edge is a transition declared by a rule: in state From, Input moves the
// machine to To and produces Output. A rule without goto yields a self edge.
type Edge struct {
	From   string
	To     string
	Input  string
	Output string
}

// BoundHandlers maps every declared state to the name of the handler that
// claims it first. Later claims are DUPLICATE_BINDING errors, and a machine
// built from the config rejects them, so they never answer for the state.
func BoundHandlers(config *statemachine.Config) map[string]string {
	owners := stateOwners(config)

	bound := make(map[string]string, len(owners))
	for state, i := range owners {
		bound[state] = handlerName(config, i)
	}

	return bound
}

func stateOwners(config *statemachine.Config) map[string]int {
	owners := make(map[string]int)

	for i, handler := range config.Handlers {
		for _, state := range handler.States {
			if _, claimed := owners[state]; !claimed && config.HasState(state) {
				owners[state] = i
			}
		}
	}

	return owners
}

// Edges lists the transitions a config declares, skipping shadowed rules,
// bindings to undeclared states and duplicate bindings.
func Edges(config *statemachine.Config) []Edge {
	var edges []Edge

	owners := stateOwners(config)
	done := make(map[string]bool)

	for i, handler := range config.Handlers {
		for _, from := range handler.States {
			if owner, ok := owners[from]; !ok || owner != i || done[from] {
				continue
			}

			done[from] = true

			seen := make(map[string]bool)

			for _, rule := range handler.Rules {
				if seen[rule.Input] {
					continue
				}

				seen[rule.Input] = true

				to := rule.Goto
				if to == "" {
					to = from
				}

				edges = append(edges, Edge{From: from, To: to, Input: rule.Input, Output: rule.Output})
			}
		}
	}

	return edges
}
