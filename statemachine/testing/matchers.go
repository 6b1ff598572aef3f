package testing

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/amp-labs/amp-fsm/statemachine"
)

// Matcher errors.
var (
	ErrNoExecutionTrace   = errors.New("no execution trace available")
	ErrNoErrorOccurred    = errors.New("no dispatch failed")
	ErrNoMatchersPassed   = errors.New("no matchers passed")
	ErrStateNotVisited    = errors.New("state was not visited")
	ErrStateMismatch      = errors.New("state mismatch")
	ErrTransitionNotTaken = errors.New("transition was not taken")
	ErrOutputNotEmitted   = errors.New("output was not emitted")
	ErrExecutionTooSlow   = errors.New("execution exceeded time limit")
)

// Matcher defines an assertion matcher over a machine's dispatch trace.
type Matcher[S statemachine.State, I, O any] interface {
	Match(machine *TestMachine[S, I, O]) (bool, error)
	Description() string
}

// StateWasVisited creates a matcher that checks whether any dispatch started
// or ended in state.
func StateWasVisited[S statemachine.State, I, O any](state S) Matcher[S, I, O] {
	return &stateVisitedMatcher[S, I, O]{state: state}
}

type stateVisitedMatcher[S statemachine.State, I, O any] struct {
	state S
}

func (m *stateVisitedMatcher[S, I, O]) Match(machine *TestMachine[S, I, O]) (bool, error) {
	for _, entry := range machine.executionTrace {
		if entry.From == m.state || entry.To == m.state {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: '%v'", ErrStateNotVisited, m.state)
}

func (m *stateVisitedMatcher[S, I, O]) Description() string {
	return fmt.Sprintf("state '%v' should be visited", m.state)
}

// TransitionWasTaken creates a matcher that checks whether a single dispatch
// moved the machine from one state to another.
func TransitionWasTaken[S statemachine.State, I, O any](from, to S) Matcher[S, I, O] {
	return &transitionTakenMatcher[S, I, O]{from: from, to: to}
}

type transitionTakenMatcher[S statemachine.State, I, O any] struct {
	from S
	to   S
}

func (m *transitionTakenMatcher[S, I, O]) Match(machine *TestMachine[S, I, O]) (bool, error) {
	for _, entry := range machine.executionTrace {
		if entry.Error == nil && entry.From == m.from && entry.To == m.to {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: from '%v' to '%v'", ErrTransitionNotTaken, m.from, m.to)
}

func (m *transitionTakenMatcher[S, I, O]) Description() string {
	return fmt.Sprintf("transition from '%v' to '%v' should be taken", m.from, m.to)
}

// OutputWasEmitted creates a matcher that checks whether any dispatch
// produced value.
func OutputWasEmitted[S statemachine.State, I, O any](value O) Matcher[S, I, O] {
	return &outputEmittedMatcher[S, I, O]{value: value}
}

type outputEmittedMatcher[S statemachine.State, I, O any] struct {
	value O
}

func (m *outputEmittedMatcher[S, I, O]) Match(machine *TestMachine[S, I, O]) (bool, error) {
	for _, entry := range machine.executionTrace {
		if value, ok := entry.Output.Get(); ok && reflect.DeepEqual(value, m.value) {
			return true, nil
		}
	}

	return false, fmt.Errorf("%w: '%v'", ErrOutputNotEmitted, m.value)
}

func (m *outputEmittedMatcher[S, I, O]) Description() string {
	return fmt.Sprintf("output '%v' should be emitted", m.value)
}

// ErrorOccurred creates a matcher that checks whether any dispatch failed.
func ErrorOccurred[S statemachine.State, I, O any]() Matcher[S, I, O] {
	return &errorOccurredMatcher[S, I, O]{}
}

type errorOccurredMatcher[S statemachine.State, I, O any] struct{}

func (m *errorOccurredMatcher[S, I, O]) Match(machine *TestMachine[S, I, O]) (bool, error) {
	if len(machine.executionTrace) == 0 {
		return false, ErrNoExecutionTrace
	}

	for _, entry := range machine.executionTrace {
		if entry.Error != nil {
			return true, nil
		}
	}

	return false, ErrNoErrorOccurred
}

func (m *errorOccurredMatcher[S, I, O]) Description() string {
	return "a dispatch should fail"
}

// AllOf creates a matcher that requires every matcher to pass.
func AllOf[S statemachine.State, I, O any](matchers ...Matcher[S, I, O]) Matcher[S, I, O] {
	return &allOfMatcher[S, I, O]{matchers: matchers}
}

type allOfMatcher[S statemachine.State, I, O any] struct {
	matchers []Matcher[S, I, O]
}

func (m *allOfMatcher[S, I, O]) Match(machine *TestMachine[S, I, O]) (bool, error) {
	for _, matcher := range m.matchers {
		ok, err := matcher.Match(machine)
		if !ok {
			return false, err
		}
	}

	return true, nil
}

func (m *allOfMatcher[S, I, O]) Description() string {
	return "all of: " + describe(m.matchers)
}

// AnyOf creates a matcher that requires at least one matcher to pass.
func AnyOf[S statemachine.State, I, O any](matchers ...Matcher[S, I, O]) Matcher[S, I, O] {
	return &anyOfMatcher[S, I, O]{matchers: matchers}
}

type anyOfMatcher[S statemachine.State, I, O any] struct {
	matchers []Matcher[S, I, O]
}

func (m *anyOfMatcher[S, I, O]) Match(machine *TestMachine[S, I, O]) (bool, error) {
	errs := make([]error, 0, len(m.matchers))

	for _, matcher := range m.matchers {
		ok, err := matcher.Match(machine)
		if ok {
			return true, nil
		}

		errs = append(errs, err)
	}

	return false, fmt.Errorf("%w: %w", ErrNoMatchersPassed, errors.Join(errs...))
}

func (m *anyOfMatcher[S, I, O]) Description() string {
	return "any of: " + describe(m.matchers)
}

func describe[S statemachine.State, I, O any](matchers []Matcher[S, I, O]) string {
	parts := make([]string, len(matchers))
	for i, matcher := range matchers {
		parts[i] = matcher.Description()
	}

	return strings.Join(parts, ", ")
}
