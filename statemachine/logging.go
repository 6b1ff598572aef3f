package statemachine

import (
	"context"
	"log/slog"
)

// Logger provides logging hooks for machine execution.
type Logger interface {
	InputDispatched(ctx context.Context, machine, state, handler string)
	TransitionExecuted(ctx context.Context, machine, from, to string)
	StateHeld(ctx context.Context, machine, state string)
	DispatchFailed(ctx context.Context, machine, state string, err error)
}

// DefaultLogger implements Logger using slog.
type DefaultLogger struct {
	logger *slog.Logger
}

// NewDefaultLogger creates a logger writing to the given slog logger.
// A nil logger means slog.Default().
func NewDefaultLogger(logger *slog.Logger) *DefaultLogger {
	if logger == nil {
		logger = slog.Default()
	}

	return &DefaultLogger{
		logger: logger,
	}
}

func (l *DefaultLogger) InputDispatched(ctx context.Context, machine, state, handler string) {
	l.logger.DebugContext(ctx, "Input dispatched", append(dispatchFields(ctx,
		"machine", machine,
		"state", state,
	), "handler", handler)...)
}

func (l *DefaultLogger) TransitionExecuted(ctx context.Context, machine, from, to string) {
	l.logger.InfoContext(ctx, "Transition executed", dispatchFields(ctx,
		"machine", machine,
		"from", from,
		"to", to,
	)...)
}

func (l *DefaultLogger) StateHeld(ctx context.Context, machine, state string) {
	l.logger.DebugContext(ctx, "State held", dispatchFields(ctx,
		"machine", machine,
		"state", state,
	)...)
}

func (l *DefaultLogger) DispatchFailed(ctx context.Context, machine, state string, err error) {
	l.logger.ErrorContext(ctx, "Dispatch failed", append(dispatchFields(ctx,
		"machine", machine,
		"state", state,
	), "error", err)...)
}

// dispatchFields appends the running dispatch and trace ids, when known,
// to the given fields.
func dispatchFields(ctx context.Context, fields ...any) []any {
	if info, ok := GetDispatchInfo(ctx); ok {
		fields = append(fields,
			"machine_id", info.MachineID,
			"sequence", info.Sequence,
		)
	}

	if traceID, spanID := extractTraceContext(ctx); traceID != "" {
		fields = append(fields,
			"trace_id", traceID,
			"span_id", spanID,
		)
	}

	return fields
}
