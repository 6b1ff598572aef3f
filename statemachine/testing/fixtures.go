package testing

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"slices"
	"sync"
	"testing"

	"github.com/alitto/pond/v2"
	"github.com/amp-labs/amp-fsm/statemachine"
	"github.com/stretchr/testify/require"
)

// ErrNondeterministic is returned when replays of the same inputs disagree.
var ErrNondeterministic = errors.New("machine is not deterministic")

// Event kinds recorded by RecordingLogger.
const (
	EventInputDispatched    = "input_dispatched"
	EventTransitionExecuted = "transition_executed"
	EventStateHeld          = "state_held"
	EventDispatchFailed     = "dispatch_failed"
)

// Event is a single logging hook call.
type Event struct {
	Kind    string
	Machine string
	State   string
	To      string
	Handler string
	Err     error
}

// RecordingLogger is a statemachine.Logger that keeps every event in memory.
type RecordingLogger struct {
	mu     sync.Mutex
	events []Event
}

var _ statemachine.Logger = (*RecordingLogger)(nil)

// NewRecordingLogger creates an empty recording logger.
func NewRecordingLogger() *RecordingLogger {
	return &RecordingLogger{}
}

func (l *RecordingLogger) InputDispatched(_ context.Context, machine, state, handler string) {
	l.add(Event{Kind: EventInputDispatched, Machine: machine, State: state, Handler: handler})
}

func (l *RecordingLogger) TransitionExecuted(_ context.Context, machine, from, to string) {
	l.add(Event{Kind: EventTransitionExecuted, Machine: machine, State: from, To: to})
}

func (l *RecordingLogger) StateHeld(_ context.Context, machine, state string) {
	l.add(Event{Kind: EventStateHeld, Machine: machine, State: state})
}

func (l *RecordingLogger) DispatchFailed(_ context.Context, machine, state string, err error) {
	l.add(Event{Kind: EventDispatchFailed, Machine: machine, State: state, Err: err})
}

// Events returns a copy of the recorded events.
func (l *RecordingLogger) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()

	return slices.Clone(l.events)
}

// Kinds returns the kind of every recorded event, in order.
func (l *RecordingLogger) Kinds() []string {
	events := l.Events()

	kinds := make([]string, len(events))
	for i, event := range events {
		kinds[i] = event.Kind
	}

	return kinds
}

// Reset discards all recorded events.
func (l *RecordingLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = nil
}

func (l *RecordingLogger) add(event Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = append(l.events, event)
}

// replay is the observable result of feeding one input sequence.
type replay struct {
	steps []string
}

// Determinism replays inputs against runs independent machines built from
// def, concurrently on a worker pool, and returns ErrNondeterministic if any
// replay's outputs, errors or states differ from the first.
func Determinism[S statemachine.State, I, O any](
	ctx context.Context, def *statemachine.Definition[S, I, O], start S, inputs []I, runs int,
) error {
	if runs < 1 {
		runs = 1
	}

	results := make([]replay, runs)
	errs := make([]error, runs)

	pool := pond.NewPool(min(runs, runtime.GOMAXPROCS(0)))

	for i := range runs {
		pool.Submit(func() {
			results[i], errs[i] = replayInputs(ctx, def, start, inputs)
		})
	}

	pool.StopAndWait()

	if err := errors.Join(errs...); err != nil {
		return err
	}

	for i := 1; i < runs; i++ {
		for j, step := range results[i].steps {
			if step != results[0].steps[j] {
				return fmt.Errorf("%w: run %d step %d: got %s, first run got %s",
					ErrNondeterministic, i, j, step, results[0].steps[j])
			}
		}
	}

	return nil
}

// CheckDeterminism fails the test if replays of inputs disagree.
func CheckDeterminism[S statemachine.State, I, O any](
	t *testing.T, def *statemachine.Definition[S, I, O], start S, inputs []I, runs int,
) {
	t.Helper()

	require.NoError(t, Determinism(t.Context(), def, start, inputs, runs))
}

func replayInputs[S statemachine.State, I, O any](
	ctx context.Context, def *statemachine.Definition[S, I, O], start S, inputs []I,
) (replay, error) {
	machine, err := statemachine.New(def, start)
	if err != nil {
		return replay{}, err
	}

	steps := make([]string, 0, len(inputs))

	for _, input := range inputs {
		out, err := machine.Dispatch(ctx, input)

		errText := "<nil>"
		if err != nil {
			errText = err.Error()
		}

		steps = append(steps, fmt.Sprintf("%v -> %s %s [%s]", input, machine.CurrentState(), out, errText))
	}

	return replay{steps: steps}, nil
}
