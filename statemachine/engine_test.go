package statemachine

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/neilotoole/slogt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type light int

const (
	red light = iota
	green
	yellow
	blinking // never part of lightDomain
)

func (l light) String() string {
	switch l {
	case red:
		return "RED"
	case green:
		return "GREEN"
	case yellow:
		return "YELLOW"
	case blinking:
		return "BLINKING"
	default:
		return "UNKNOWN"
	}
}

var lightDomain = NewDomain(red, green, yellow)

var errTestHandlerFailed = errors.New("handler failed")

// advance moves red -> green -> yellow -> red on "tick" and holds on "wait".
func advance(ctx context.Context, m *Machine[light, string, string], input string) (Output[string], error) {
	if input == "wait" {
		m.Stay(ctx, input)

		return Emit("waiting"), nil
	}

	if input != "tick" {
		return NoOutput[string](), nil
	}

	switch m.CurrentState() {
	case red:
		m.Transition(green)
	case green:
		m.Transition(yellow)
	default:
		m.Transition(red)
	}

	return Emit("moved"), nil
}

func newLights(t *testing.T, name string) *Builder[light, string, string] {
	t.Helper()

	return NewBuilder[light, string, string](name, lightDomain).
		WithLogger(NewDefaultLogger(slogt.New(t)))
}

func TestNewStartsInGivenState(t *testing.T) {
	t.Parallel()

	def := newLights(t, "test_start").When(advance, red, green, yellow).Build()

	for state := range lightDomain.All() {
		m, err := def.New(state)
		require.NoError(t, err)
		assert.Equal(t, state, m.CurrentState())
		assert.NotEmpty(t, m.ID())
		assert.Same(t, def, m.Definition())
	}
}

func TestDispatchRoutesToBoundHandler(t *testing.T) {
	t.Parallel()

	def := newLights(t, "test_routes").When(advance, red, green, yellow).Build()

	m, err := New(def, red)
	require.NoError(t, err)

	out, err := m.Dispatch(t.Context(), "tick")
	require.NoError(t, err)
	assert.Equal(t, "moved", out.GetOrElse(""))
	assert.Equal(t, green, m.CurrentState())

	out, err = m.Dispatch(t.Context(), "tick")
	require.NoError(t, err)
	assert.True(t, out.Present())
	assert.Equal(t, yellow, m.CurrentState())

	out, err = m.Dispatch(t.Context(), "unknown input")
	require.NoError(t, err)
	assert.True(t, out.Empty())
	assert.Equal(t, yellow, m.CurrentState())
}

func TestUnhandledStateFails(t *testing.T) {
	t.Parallel()

	def := newLights(t, "test_unhandled").When(advance, red).Build()

	m, err := New(def, red)
	require.NoError(t, err)

	_, err = m.Dispatch(t.Context(), "tick")
	require.NoError(t, err)
	require.Equal(t, green, m.CurrentState())

	out, err := m.Dispatch(t.Context(), "tick")
	require.ErrorIs(t, err, ErrUnhandledState)
	assert.True(t, out.Empty())
	assert.Equal(t, green, m.CurrentState(), "an unhandled input must not move the machine")

	var stateErr *StateError
	require.ErrorAs(t, err, &stateErr)
	assert.Equal(t, "GREEN", stateErr.State)
	assert.Equal(t, "test_unhandled", stateErr.Machine)

	// The machine stays usable after the failure.
	m.Transition(red)

	_, err = m.Dispatch(t.Context(), "tick")
	require.NoError(t, err)
}

func TestEveryStateIsCovered(t *testing.T) {
	t.Parallel()

	def := newLights(t, "test_complete").When(advance, yellow).Build()

	for state := range lightDomain.All() {
		m, err := New(def, state)
		require.NoError(t, err)

		_, err = m.Dispatch(t.Context(), "wait")
		if state == yellow {
			require.NoError(t, err)
		} else {
			require.ErrorIs(t, err, ErrUnhandledState)
		}
	}
}

func TestUnknownBindingStateFailsConstruction(t *testing.T) {
	t.Parallel()

	def := newLights(t, "test_unknown_binding").
		When(advance, red, green).
		WhenNamed("blink", Ignore[light, string, string](), blinking).
		Build()

	m, err := New(def, red)
	require.ErrorIs(t, err, ErrUnknownState)
	assert.Nil(t, m)

	var bindingErr *BindingError
	require.ErrorAs(t, err, &bindingErr)
	assert.Equal(t, "BLINKING", bindingErr.State)
	assert.Equal(t, "blink", bindingErr.Binding)

	_, err = def.Describe()
	require.ErrorIs(t, err, ErrUnknownState)
}

func TestUnknownStartStateFailsConstruction(t *testing.T) {
	t.Parallel()

	def := newLights(t, "test_unknown_start").When(advance, red).Build()

	_, err := New(def, blinking)
	require.ErrorIs(t, err, ErrUnknownState)
}

func TestEmptyDomainFailsConstruction(t *testing.T) {
	t.Parallel()

	def := NewBuilder[light, string, string]("test_empty", NewDomain[light]()).Build()

	_, err := New(def, red)
	require.ErrorIs(t, err, ErrEmptyDomain)
}

func TestNilHandlerFailsConstruction(t *testing.T) {
	t.Parallel()

	def := newLights(t, "test_nil_handler").When(nil, red).Build()

	_, err := New(def, red)
	require.ErrorIs(t, err, ErrNilHandler)
}

func TestDuplicateBindings(t *testing.T) {
	t.Parallel()

	first := func(context.Context, *Machine[light, string, string], string) (Output[string], error) {
		return Emit("first"), nil
	}
	second := func(context.Context, *Machine[light, string, string], string) (Output[string], error) {
		return Emit("second"), nil
	}

	t.Run("rejected by default", func(t *testing.T) {
		t.Parallel()

		def := newLights(t, "test_duplicates").
			WhenNamed("first", first, red).
			WhenNamed("second", second, green, red).
			Build()

		assert.Equal(t, RejectDuplicates, def.DuplicatePolicy())

		_, err := New(def, red)
		require.ErrorIs(t, err, ErrDuplicateBinding)
		assert.Contains(t, err.Error(), "already bound by first")
	})

	t.Run("last binding wins when allowed", func(t *testing.T) {
		t.Parallel()

		def := newLights(t, "test_duplicates_last").
			When(first, red).
			When(second, red).
			LastBindingWins().
			Build()

		m, err := New(def, red)
		require.NoError(t, err)

		out, err := m.Dispatch(t.Context(), "x")
		require.NoError(t, err)
		assert.Equal(t, "second", out.GetOrElse(""))
	})

	t.Run("repeated state in one binding is harmless", func(t *testing.T) {
		t.Parallel()

		def := newLights(t, "test_duplicates_same").When(first, red, red, green).Build()

		m, err := New(def, red)
		require.NoError(t, err)

		out, err := m.Dispatch(t.Context(), "x")
		require.NoError(t, err)
		assert.Equal(t, "first", out.GetOrElse(""))
	})
}

func TestStayKeepsStateAndRunsHook(t *testing.T) {
	t.Parallel()

	var held []string

	def := newLights(t, "test_stay").
		When(advance, red, green, yellow).
		OnStay(func(_ context.Context, m *Machine[light, string, string], input string) {
			held = append(held, m.CurrentState().String()+":"+input)
		}).
		Build()

	for state := range lightDomain.All() {
		m, err := New(def, state)
		require.NoError(t, err)

		out, err := m.Dispatch(t.Context(), "wait")
		require.NoError(t, err)
		assert.Equal(t, "waiting", out.GetOrElse(""))
		assert.Equal(t, state, m.CurrentState())
	}

	assert.Equal(t, []string{"RED:wait", "GREEN:wait", "YELLOW:wait"}, held)
}

func TestHandlerErrorsPassThroughUnchanged(t *testing.T) {
	t.Parallel()

	failBefore := func(context.Context, *Machine[light, string, string], string) (Output[string], error) {
		return NoOutput[string](), errTestHandlerFailed
	}
	failAfter := func(_ context.Context, m *Machine[light, string, string], _ string) (Output[string], error) {
		m.Transition(red)

		return NoOutput[string](), errTestHandlerFailed
	}

	def := newLights(t, "test_handler_errors").When(failBefore, green).When(failAfter, yellow).Build()

	m, err := New(def, green)
	require.NoError(t, err)

	_, err = m.Dispatch(t.Context(), "x")
	require.Equal(t, errTestHandlerFailed, err) //nolint:testifylint // identity, not just Is
	assert.Equal(t, green, m.CurrentState())

	m.Transition(yellow)

	_, err = m.Dispatch(t.Context(), "x")
	require.Equal(t, errTestHandlerFailed, err) //nolint:testifylint // identity, not just Is
	assert.Equal(t, red, m.CurrentState(), "a transition made before the failure is kept")
}

func TestOnUnhandledOverride(t *testing.T) {
	t.Parallel()

	def := newLights(t, "test_on_unhandled").
		When(advance, red).
		OnUnhandled(Ignore[light, string, string]()).
		Build()

	m, err := New(def, green)
	require.NoError(t, err)

	out, err := m.Dispatch(t.Context(), "tick")
	require.NoError(t, err)
	assert.True(t, out.Empty())
	assert.Equal(t, green, m.CurrentState())
}

func TestIgnoreBoundToSingleState(t *testing.T) {
	t.Parallel()

	def := newLights(t, "test_ignore").
		When(advance, red).
		When(Ignore[light, string, string](), green).
		Build()

	m, err := New(def, green)
	require.NoError(t, err)

	_, err = m.Dispatch(t.Context(), "tick")
	require.NoError(t, err)
	assert.Equal(t, green, m.CurrentState())

	m.Transition(yellow)

	_, err = m.Dispatch(t.Context(), "tick")
	require.ErrorIs(t, err, ErrUnhandledState)
}

func TestDispatchFromStateOutsideDomain(t *testing.T) {
	t.Parallel()

	def := newLights(t, "test_foreign_state").When(advance, red, green, yellow).Build()

	m, err := New(def, red)
	require.NoError(t, err)

	m.Transition(blinking)

	_, err = m.Dispatch(t.Context(), "tick")
	require.ErrorIs(t, err, ErrUnknownState)
	assert.Equal(t, blinking, m.CurrentState())
}

func TestMachinesDoNotShareState(t *testing.T) {
	t.Parallel()

	def := newLights(t, "test_isolation").When(advance, red, green, yellow).Build()

	first, err := def.New(red)
	require.NoError(t, err)

	second, err := def.New(red)
	require.NoError(t, err)

	_, err = first.Dispatch(t.Context(), "tick")
	require.NoError(t, err)

	assert.Equal(t, green, first.CurrentState())
	assert.Equal(t, red, second.CurrentState())
	assert.NotEqual(t, first.ID(), second.ID())
}

func TestBuilderSnapshots(t *testing.T) {
	t.Parallel()

	builder := newLights(t, "test_snapshot").When(advance, red)
	before := builder.Build()

	builder.When(Ignore[light, string, string](), green)
	after := builder.Build()

	assert.Len(t, before.Bindings(), 1)
	assert.Len(t, after.Bindings(), 2)
}

func TestDescribe(t *testing.T) {
	t.Parallel()

	def := newLights(t, "test_describe").
		WhenNamed("advance", advance, red, green).
		Build()

	infos, err := def.Describe()
	require.NoError(t, err)

	assert.Equal(t, []StateInfo[light]{
		{State: red, Handler: "advance", Bound: true},
		{State: green, Handler: "advance", Bound: true},
		{State: yellow, Handler: "unhandled", Bound: false},
	}, infos)
}

func TestDispatchInfoInHandler(t *testing.T) {
	t.Parallel()

	var seen []DispatchInfo

	probe := func(ctx context.Context, _ *Machine[light, string, string], _ string) (Output[string], error) {
		info, ok := GetDispatchInfo(ctx)
		require.True(t, ok)

		seen = append(seen, info)

		return NoOutput[string](), nil
	}

	def := newLights(t, "test_dispatch_info").WhenNamed("probe", probe, red).Build()

	m, err := New(def, red)
	require.NoError(t, err)

	for range 2 {
		_, err = m.Dispatch(t.Context(), "x")
		require.NoError(t, err)
	}

	require.Len(t, seen, 2)
	assert.Equal(t, "test_dispatch_info", seen[0].Machine)
	assert.Equal(t, m.ID(), seen[0].MachineID)
	assert.Equal(t, "RED", seen[0].State)
	assert.Equal(t, "probe", seen[0].Handler)
	assert.Equal(t, uint64(1), seen[0].Sequence)
	assert.Equal(t, uint64(2), seen[1].Sequence)

	_, ok := GetDispatchInfo(t.Context())
	assert.False(t, ok)
}

func TestFunc(t *testing.T) {
	t.Parallel()

	def := newLights(t, "test_func").When(advance, red, green, yellow).Build()

	m, err := New(def, red)
	require.NoError(t, err)

	call := m.Func()

	out, err := call(t.Context(), "tick")
	require.NoError(t, err)
	assert.Equal(t, "moved", out.GetOrElse(""))
	assert.Equal(t, green, m.CurrentState())
}

func TestSynchronizedMachine(t *testing.T) {
	t.Parallel()

	counter := 0
	count := func(_ context.Context, m *Machine[light, string, string], _ string) (Output[string], error) {
		counter++
		m.Transition(m.CurrentState())

		return NoOutput[string](), nil
	}

	def := newLights(t, "test_sync").When(count, red, green, yellow).Build()

	m, err := New(def, red)
	require.NoError(t, err)

	sm := Synchronized(m)
	assert.Equal(t, m.ID(), sm.ID())

	var wg sync.WaitGroup

	for range 50 {
		wg.Go(func() {
			_, err := sm.Dispatch(context.Background(), "x")
			assert.NoError(t, err)
		})
	}

	wg.Wait()

	assert.Equal(t, 50, counter)

	sm.Transition(yellow)
	assert.Equal(t, yellow, sm.CurrentState())
}

func TestDomain(t *testing.T) {
	t.Parallel()

	d := NewDomain(green, red, green, yellow, red)

	assert.Equal(t, 3, d.Len())
	assert.Equal(t, []light{green, red, yellow}, d.States())
	assert.True(t, d.Contains(red))
	assert.False(t, d.Contains(blinking))

	states := d.States()
	states[0] = blinking
	assert.Equal(t, green, d.States()[0], "States returns a copy")
}

func TestOutput(t *testing.T) {
	t.Parallel()

	some := Emit(0)
	value, ok := some.Get()
	assert.True(t, ok)
	assert.Equal(t, 0, value)
	assert.True(t, some.Present())
	assert.Equal(t, "Emit(0)", some.String())

	none := NoOutput[int]()
	assert.True(t, none.Empty())
	assert.Equal(t, 7, none.GetOrElse(7))
	assert.Equal(t, "NoOutput", none.String())
}
