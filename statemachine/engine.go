package statemachine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// contextKey is a custom type for context keys to avoid collisions.
type contextKey string

// dispatchInfoKey is the key used to store the running dispatch in Go context.
const dispatchInfoKey contextKey = "statemachine_dispatch"

// Metric outcome constants.
const (
	outcomeSuccess   = "success"
	outcomeUnhandled = "unhandled"
	outcomeUnknown   = "unknown_state"
	outcomeError     = "error"
)

// DispatchInfo describes the dispatch a context belongs to. Handlers and
// loggers can read it with GetDispatchInfo.
type DispatchInfo struct {
	Machine   string
	MachineID string
	State     string
	Handler   string
	Sequence  uint64
}

// GetDispatchInfo extracts the running dispatch from the context.
func GetDispatchInfo(ctx context.Context) (DispatchInfo, bool) {
	info, ok := ctx.Value(dispatchInfoKey).(DispatchInfo)

	return info, ok
}

// Machine is a running instance of a Definition. It holds the current state
// and its own dispatch table. A Machine is not safe for concurrent use;
// wrap it with Synchronized when several goroutines drive it.
type Machine[S State, I, O any] struct {
	id       string
	def      *Definition[S, I, O]
	table    map[S]entry[S, I, O]
	current  S
	sequence uint64
}

// New builds a machine from def, starting in state start. It fails with
// ErrUnknownState if a binding or the start state lies outside the domain,
// and with ErrDuplicateBinding if two bindings claim the same state while
// duplicates are rejected.
func New[S State, I, O any](def *Definition[S, I, O], start S) (*Machine[S, I, O], error) {
	table, err := buildTable(def)
	if err != nil {
		recordConstructionFailure(def.name, err)

		return nil, err
	}

	if !def.domain.Contains(start) {
		err = WrapStateError(def.name, start.String(), ErrUnknownState)
		recordConstructionFailure(def.name, err)

		return nil, err
	}

	machinesCreatedTotal.WithLabelValues(sanitizeMachine(def.name)).Inc()

	return &Machine[S, I, O]{
		id:      uuid.NewString(),
		def:     def,
		table:   table,
		current: start,
	}, nil
}

// ID returns the machine's unique instance id.
func (m *Machine[S, I, O]) ID() string {
	return m.id
}

// Definition returns the definition the machine was built from.
func (m *Machine[S, I, O]) Definition() *Definition[S, I, O] {
	return m.def
}

// CurrentState returns the state the machine is in.
func (m *Machine[S, I, O]) CurrentState() S {
	return m.current
}

// Transition moves the machine to next. It is meant to be called by a
// handler during dispatch; the new state is used by the very next dispatch.
func (m *Machine[S, I, O]) Transition(next S) {
	m.current = next
}

// Stay records that the handler elected to hold the current state. It never
// changes the state; the definition's stay hook, if any, is invoked.
func (m *Machine[S, I, O]) Stay(ctx context.Context, input I) {
	state := m.current.String()

	staysTotal.WithLabelValues(sanitizeMachine(m.def.name), state).Inc()

	if m.def.logger != nil {
		m.def.logger.StateHeld(ctx, m.def.name, state)
	}

	if m.def.stay != nil {
		m.def.stay(ctx, m, input)
	}
}

// Dispatch routes input to the handler bound to the current state and
// returns the handler's output. Errors returned by a handler are passed
// through unchanged; a state with no handler fails with ErrUnhandledState
// and the machine stays where it was.
func (m *Machine[S, I, O]) Dispatch(ctx context.Context, input I) (out Output[O], err error) {
	from := m.current
	ent, known := m.table[from]

	m.sequence++
	info := DispatchInfo{
		Machine:   m.def.name,
		MachineID: m.id,
		State:     from.String(),
		Handler:   ent.name,
		Sequence:  m.sequence,
	}

	ctx = context.WithValue(ctx, dispatchInfoKey, info)

	ctx, span := startDispatchSpan(ctx, info)
	start := time.Now()

	defer func() {
		elapsed := time.Since(start)
		outcome := dispatchOutcome(err)
		to := m.current.String()

		span.SetAttributes(
			attribute.String("next_state", to),
			attribute.String("outcome", outcome),
			attribute.Bool("output", out.Present()),
			attribute.Int64("duration_us", elapsed.Microseconds()),
		)

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "dispatched")
		}

		span.End()

		machine := sanitizeMachine(m.def.name)
		dispatchTotal.WithLabelValues(machine, info.State, outcome).Inc()
		dispatchDuration.WithLabelValues(machine, info.State, outcome).Observe(elapsed.Seconds())

		if m.current != from {
			transitionsTotal.WithLabelValues(machine, info.State, to).Inc()

			if m.def.logger != nil {
				m.def.logger.TransitionExecuted(ctx, m.def.name, info.State, to)
			}
		}

		if err != nil && m.def.logger != nil {
			m.def.logger.DispatchFailed(ctx, m.def.name, info.State, err)
		}
	}()

	if !known {
		return NoOutput[O](), WrapStateError(m.def.name, info.State, ErrUnknownState)
	}

	if m.def.logger != nil {
		m.def.logger.InputDispatched(ctx, m.def.name, info.State, ent.name)
	}

	return ent.handler(ctx, m, input)
}

// Func returns the machine as a plain function, for callers that only need
// to feed it inputs.
func (m *Machine[S, I, O]) Func() func(ctx context.Context, input I) (Output[O], error) {
	return m.Dispatch
}

func dispatchOutcome(err error) string {
	switch {
	case err == nil:
		return outcomeSuccess
	case errors.Is(err, ErrUnhandledState):
		return outcomeUnhandled
	case errors.Is(err, ErrUnknownState):
		return outcomeUnknown
	default:
		return outcomeError
	}
}
