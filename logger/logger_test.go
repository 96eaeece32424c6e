//nolint:err113 // Test file uses errors.New() for creating test errors
package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()

	var out []map[string]any

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}

		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))

		out = append(out, m)
	}

	return out
}

func TestGet_ContextFields(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem: "booking",
		JSON:      true,
		Output:    &buf,
	})

	Get().Info("default subsystem")

	ctx := WithRequestId(WithSubsystem(t.Context(), "contact-form"), "req-1")
	ctx = With(ctx, "label", "SubmitContact")
	Get(ctx).Info("overridden")

	Get(WithMuted(t.Context(), true)).Info("muted")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "booking", lines[0]["subsystem"])
	assert.Equal(t, "contact-form", lines[1]["subsystem"])
	assert.Equal(t, "req-1", lines[1]["request-id"])
	assert.Equal(t, "SubmitContact", lines[1]["label"])
}

func TestGet_AnnotatedErrorExpanded(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem: "booking",
		JSON:      true,
		Output:    &buf,
	})

	err := AnnotateError(errors.New("Network error"), "attempt", 2)
	Get().Error("operation failed", "error", err, "plain", errors.New("kept"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)

	assert.Equal(t, "Network error", lines[0]["error"])
	assert.Equal(t, "kept", lines[0]["plain"])
	assert.InDelta(t, 2, lines[0]["attempt"], 0)
}

func TestLegacyLoggerRedirected(t *testing.T) { //nolint:paralleltest
	var buf bytes.Buffer

	ConfigureLoggingWithOptions(Options{
		Subsystem:   "booking",
		JSON:        true,
		MinLevel:    slog.LevelDebug,
		LegacyLevel: slog.LevelInfo,
		Output:      &buf,
	})

	log.Println("legacy")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "legacy", lines[0]["msg"])
}

func TestConfigureLogging_Env(t *testing.T) { //nolint:paralleltest
	t.Setenv("LOG_JSON", "true")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_OUTPUT", "stderr")

	var buf bytes.Buffer

	lg, err := ConfigureLogging("booking", WithOutput(&buf))
	require.NoError(t, err)

	lg.Info("dropped")
	lg.Warn("kept")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "kept", lines[0]["msg"])
	assert.Equal(t, "booking", GetSubsystem(t.Context()))
}

func TestConfigureLogging_BadOutput(t *testing.T) { //nolint:paralleltest
	t.Setenv("LOG_OUTPUT", "syslog")

	_, err := ConfigureLogging("booking")
	require.ErrorIs(t, err, ErrInvalidLogOutput)
}
