package statemachine

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLogLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var records []map[string]any

	for line := range strings.SplitSeq(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var record map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &record))

		records = append(records, record)
	}

	return records
}

func TestDefaultLogger(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer

	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	def := NewBuilder[light, string, string]("test_logging", lightDomain).
		WhenNamed("advance", advance, red).
		WithLogger(NewDefaultLogger(logger)).
		Build()

	m, err := New(def, red)
	require.NoError(t, err)

	_, err = m.Dispatch(t.Context(), "wait")
	require.NoError(t, err)

	_, err = m.Dispatch(t.Context(), "tick")
	require.NoError(t, err)

	_, err = m.Dispatch(t.Context(), "tick")
	require.ErrorIs(t, err, ErrUnhandledState)

	records := decodeLogLines(t, &buf)

	messages := make([]string, 0, len(records))
	for _, record := range records {
		messages = append(messages, record["msg"].(string)) //nolint:forcetypeassert // slog always writes msg
	}

	assert.Equal(t, []string{
		"Input dispatched",
		"State held",
		"Input dispatched",
		"Transition executed",
		"Input dispatched",
		"Dispatch failed",
	}, messages)

	transition := records[3]
	assert.Equal(t, "test_logging", transition["machine"])
	assert.Equal(t, "RED", transition["from"])
	assert.Equal(t, "GREEN", transition["to"])
	assert.Equal(t, m.ID(), transition["machine_id"])
	assert.InDelta(t, 2, transition["sequence"], 0)

	failure := records[5]
	assert.Equal(t, "GREEN", failure["state"])
	assert.Contains(t, failure["error"], ErrUnhandledState.Error())
}

func TestNewDefaultLoggerFallsBackToDefault(t *testing.T) {
	t.Parallel()

	logger := NewDefaultLogger(nil)
	assert.Same(t, slog.Default(), logger.logger)
}
