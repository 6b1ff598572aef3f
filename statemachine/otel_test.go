package statemachine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// setupTestTracer creates a test tracer with an in-memory exporter.
func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()

	exporter := tracetest.NewInMemoryExporter()
	tp := trace.NewTracerProvider(
		trace.WithSyncer(exporter),
	)

	oldProvider := otel.GetTracerProvider()

	otel.SetTracerProvider(tp)

	t.Cleanup(func() {
		otel.SetTracerProvider(oldProvider)
	})

	return exporter
}

func spanAttributes(span tracetest.SpanStub) map[string]any {
	attrMap := make(map[string]any)
	for _, attr := range span.Attributes {
		attrMap[string(attr.Key)] = attr.Value.AsInterface()
	}

	return attrMap
}

// TestDispatchSpans verifies one span per dispatch with its attributes.
// Note: Cannot use t.Parallel() because setupTestTracer modifies global OTEL tracer provider.
//
//nolint:paralleltest // Test modifies global OTEL tracer provider
func TestDispatchSpans(t *testing.T) {
	exporter := setupTestTracer(t)

	def := NewBuilder[light, string, string]("test_spans", lightDomain).
		WhenNamed("advance", advance, red).
		Build()

	m, err := New(def, red)
	require.NoError(t, err)

	//nolint:paralleltest // Subtests share exporter, must run sequentially
	t.Run("successful dispatch", func(t *testing.T) {
		exporter.Reset()

		_, err := m.Dispatch(t.Context(), "tick")
		require.NoError(t, err)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)

		span := spans[0]
		assert.Equal(t, "statemachine.dispatch", span.Name)
		assert.Equal(t, codes.Ok, span.Status.Code)

		attrs := spanAttributes(span)
		assert.Equal(t, "test_spans", attrs["machine"])
		assert.Equal(t, m.ID(), attrs["machine_id"])
		assert.Equal(t, "RED", attrs["state"])
		assert.Equal(t, "GREEN", attrs["next_state"])
		assert.Equal(t, "advance", attrs["handler"])
		assert.Equal(t, outcomeSuccess, attrs["outcome"])
		assert.Equal(t, true, attrs["output"])
	})

	//nolint:paralleltest // Subtests share exporter, must run sequentially
	t.Run("unhandled dispatch", func(t *testing.T) {
		exporter.Reset()

		_, err := m.Dispatch(t.Context(), "tick")
		require.ErrorIs(t, err, ErrUnhandledState)

		spans := exporter.GetSpans()
		require.Len(t, spans, 1)

		span := spans[0]
		assert.Equal(t, codes.Error, span.Status.Code)
		assert.Equal(t, outcomeUnhandled, spanAttributes(span)["outcome"])
		assert.NotEmpty(t, span.Events, "error should be recorded as a span event")
	})
}

//nolint:paralleltest // Test modifies global OTEL tracer provider
func TestExtractTraceContext(t *testing.T) {
	setupTestTracer(t)

	traceID, spanID := extractTraceContext(t.Context())
	assert.Empty(t, traceID)
	assert.Empty(t, spanID)

	ctx, span := otel.Tracer("test").Start(t.Context(), "probe")
	defer span.End()

	traceID, spanID = extractTraceContext(ctx)
	assert.Equal(t, span.SpanContext().TraceID().String(), traceID)
	assert.Equal(t, span.SpanContext().SpanID().String(), spanID)
}
