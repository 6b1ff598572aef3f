package statemachine

import (
	"context"
	"log/slog"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/amp-labs/amp-fsm/statemachine"

// startDispatchSpan creates the span covering one dispatch.
// Uses the global tracer initialized by github.com/amp-labs/amp-fsm/telemetry.
// The caller is responsible for calling span.End().
//
//nolint:spancheck // Span lifecycle managed by caller
func startDispatchSpan(ctx context.Context, info DispatchInfo) (context.Context, trace.Span) {
	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "statemachine.dispatch")
	span.SetAttributes(
		attribute.String("machine", sanitizeMachine(info.Machine)),
		attribute.String("machine_id", info.MachineID),
		attribute.String("state", info.State),
		attribute.String("handler", info.Handler),
		attribute.Int64("sequence", int64(info.Sequence)), //nolint:gosec // sequence never nears MaxInt64
	)
	logSpanDebug(ctx, "statemachine.dispatch", span)

	return ctx, span
}

// extractTraceContext extracts trace ID and span ID from context for logging.
func extractTraceContext(ctx context.Context) (traceID, spanID string) {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		spanCtx := span.SpanContext()

		return spanCtx.TraceID().String(), spanCtx.SpanID().String()
	}

	return "", ""
}

// logSpanDebug logs span creation when FSM_DEBUG is enabled.
func logSpanDebug(ctx context.Context, spanName string, span trace.Span) {
	if !isDebugMode() {
		return
	}

	spanCtx := span.SpanContext()
	slog.DebugContext(ctx, "OTEL Span started",
		"span_name", spanName,
		"trace_id", spanCtx.TraceID().String(),
		"span_id", spanCtx.SpanID().String(),
	)
}

// isDebugMode checks if FSM_DEBUG mode is enabled.
func isDebugMode() bool {
	return strings.EqualFold(os.Getenv("FSM_DEBUG"), "1") ||
		strings.EqualFold(os.Getenv("FSM_DEBUG"), "true")
}
