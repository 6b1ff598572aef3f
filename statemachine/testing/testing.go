// Package testing provides testing utilities for state machines.
//
//nolint:varnamelen // short names idiomatic
package testing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/stretchr/testify/require"
)

// TestMachine wraps Machine with a dispatch trace and assertions.
type TestMachine[S statemachine.State, I, O any] struct {
	*statemachine.Machine[S, I, O]

	t              *testing.T
	executionTrace []TraceEntry[S, I, O]
	assertions     []Assertion
}

// TraceEntry records a single dispatch.
type TraceEntry[S statemachine.State, I, O any] struct {
	Timestamp time.Time
	Input     I
	From      S
	To        S
	Output    statemachine.Output[O]
	Duration  time.Duration
	Error     error
}

// Assertion represents a test assertion.
type Assertion struct {
	Name   string
	Passed bool
	Error  error
}

// NewTestMachine builds a machine from def starting in start and fails the
// test if construction fails.
func NewTestMachine[S statemachine.State, I, O any](
	t *testing.T, def *statemachine.Definition[S, I, O], start S,
) *TestMachine[S, I, O] {
	t.Helper()

	machine, err := statemachine.New(def, start)
	require.NoError(t, err, "failed to create machine")

	return &TestMachine[S, I, O]{
		Machine:        machine,
		t:              t,
		executionTrace: make([]TraceEntry[S, I, O], 0),
		assertions:     make([]Assertion, 0),
	}
}

// Dispatch dispatches input and records the result in the trace.
func (tm *TestMachine[S, I, O]) Dispatch(ctx context.Context, input I) (statemachine.Output[O], error) {
	tm.t.Helper()

	entry := TraceEntry[S, I, O]{
		Timestamp: time.Now(),
		Input:     input,
		From:      tm.CurrentState(),
	}

	out, err := tm.Machine.Dispatch(ctx, input)

	entry.To = tm.CurrentState()
	entry.Output = out
	entry.Duration = time.Since(entry.Timestamp)
	entry.Error = err

	tm.executionTrace = append(tm.executionTrace, entry)

	return out, err
}

// Feed dispatches every input in order, failing the test on the first error.
func (tm *TestMachine[S, I, O]) Feed(ctx context.Context, inputs ...I) []statemachine.Output[O] {
	tm.t.Helper()

	outputs := make([]statemachine.Output[O], 0, len(inputs))

	for _, input := range inputs {
		out, err := tm.Dispatch(ctx, input)
		require.NoError(tm.t, err, "dispatching %v", input)

		outputs = append(outputs, out)
	}

	return outputs
}

// AssertStateVisited checks if a state was entered or dispatched from.
func (tm *TestMachine[S, I, O]) AssertStateVisited(state S) {
	tm.t.Helper()

	ok, err := StateWasVisited[S, I, O](state).Match(tm)
	tm.record(fmt.Sprintf("State '%s' was visited", state), ok, err)
	require.True(tm.t, ok, "state '%s' should have been visited", state)
}

// AssertTransitionTaken checks if a dispatch moved the machine from one state to another.
func (tm *TestMachine[S, I, O]) AssertTransitionTaken(from, to S) {
	tm.t.Helper()

	ok, err := TransitionWasTaken[S, I, O](from, to).Match(tm)
	tm.record(fmt.Sprintf("Transition from '%s' to '%s' was taken", from, to), ok, err)
	require.True(tm.t, ok, "transition from '%s' to '%s' should have been taken", from, to)
}

// AssertFinalState checks the current state matches expected.
func (tm *TestMachine[S, I, O]) AssertFinalState(expected S) {
	tm.t.Helper()

	actual := tm.CurrentState()

	var err error
	if actual != expected {
		err = fmt.Errorf("%w: expected '%s', got '%s'", ErrStateMismatch, expected, actual)
	}

	tm.record(fmt.Sprintf("Final state is '%s'", expected), err == nil, err)
	require.Equal(tm.t, expected, actual, "final state should be '%s'", expected)
}

// AssertExecutionTime checks total dispatch time.
func (tm *TestMachine[S, I, O]) AssertExecutionTime(maxDuration time.Duration) {
	tm.t.Helper()

	totalDuration := time.Duration(0)
	for _, entry := range tm.executionTrace {
		totalDuration += entry.Duration
	}

	var err error
	if totalDuration > maxDuration {
		err = fmt.Errorf("%w: took %s, max %s", ErrExecutionTooSlow, totalDuration, maxDuration)
	}

	tm.record(fmt.Sprintf("Execution time < %s", maxDuration), err == nil, err)
	require.LessOrEqual(tm.t, totalDuration, maxDuration,
		"execution should take less than %s, took %s", maxDuration, totalDuration)
}

// GetTrace returns the dispatch trace for inspection.
func (tm *TestMachine[S, I, O]) GetTrace() []TraceEntry[S, I, O] {
	return tm.executionTrace
}

// GetAssertions returns all assertions made.
func (tm *TestMachine[S, I, O]) GetAssertions() []Assertion {
	return tm.assertions
}

func (tm *TestMachine[S, I, O]) record(name string, passed bool, err error) {
	tm.assertions = append(tm.assertions, Assertion{
		Name:   name,
		Passed: passed,
		Error:  err,
	})
}
