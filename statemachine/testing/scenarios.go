package testing

import (
	"context"
	"testing"

	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/stretchr/testify/require"
)

// Dispatcher is satisfied by Machine, SyncMachine and TestMachine.
type Dispatcher[S statemachine.State, I, O any] interface {
	Dispatch(ctx context.Context, input I) (statemachine.Output[O], error)
	CurrentState() S
}

// Step is one expected dispatch: feeding Input yields Output (or Err) and
// leaves the machine in State.
type Step[S statemachine.State, I, O any] struct {
	Input  I
	Output statemachine.Output[O]
	State  S
	Err    error
}

// Scenario is a named sequence of steps run against a fresh machine.
type Scenario[S statemachine.State, I, O any] struct {
	Name  string
	Start S
	Steps []Step[S, I, O]
}

// RunSteps feeds each step's input to m and checks output, error and the
// resulting state.
func RunSteps[S statemachine.State, I, O any](t *testing.T, m Dispatcher[S, I, O], steps []Step[S, I, O]) {
	t.Helper()

	for i, step := range steps {
		out, err := m.Dispatch(t.Context(), step.Input)
		if step.Err != nil {
			require.ErrorIs(t, err, step.Err, "step %d: input %v", i, step.Input)
		} else {
			require.NoError(t, err, "step %d: input %v", i, step.Input)
			require.Equal(t, step.Output, out, "step %d: input %v", i, step.Input)
		}

		require.Equal(t, step.State, m.CurrentState(), "step %d: input %v", i, step.Input)
	}
}

// RunScenario builds a machine from def and runs the scenario as a subtest.
func RunScenario[S statemachine.State, I, O any](
	t *testing.T, def *statemachine.Definition[S, I, O], scenario Scenario[S, I, O],
) {
	t.Helper()
	t.Run(scenario.Name, func(t *testing.T) {
		t.Helper()

		RunSteps[S, I, O](t, NewTestMachine(t, def, scenario.Start), scenario.Steps)
	})
}

// RequireUnhandled dispatches input and requires it to fail as unhandled
// without changing the state.
func RequireUnhandled[S statemachine.State, I, O any](t *testing.T, m Dispatcher[S, I, O], input I) {
	t.Helper()

	before := m.CurrentState()

	_, err := m.Dispatch(t.Context(), input)
	require.ErrorIs(t, err, statemachine.ErrUnhandledState)

	var stateErr *statemachine.StateError
	require.ErrorAs(t, err, &stateErr)
	require.Equal(t, before.String(), stateErr.State)
	require.Equal(t, before, m.CurrentState())
}

// RequireUnknownState dispatches input and requires it to fail because the
// machine sits in a state outside its domain.
func RequireUnknownState[S statemachine.State, I, O any](t *testing.T, m Dispatcher[S, I, O], input I) {
	t.Helper()

	_, err := m.Dispatch(t.Context(), input)
	require.ErrorIs(t, err, statemachine.ErrUnknownState)
}
