package logging

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"DEBUG": slog.LevelDebug,
		"info":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestSetup_ConsoleOnly(t *testing.T) {
	var buf bytes.Buffer
	logger, closeLog, err := setup(&buf, false, "", "warn")
	require.NoError(t, err)
	assert.NoError(t, closeLog())

	logger.Info("hidden")
	logger.Warn("shown", "card", "abc")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "card=abc")
	assert.NotContains(t, out, "\x1b[", "colour disabled")
}

func TestSetup_FileAndConsole(t *testing.T) {
	var buf bytes.Buffer
	logFile := filepath.Join(t.TempDir(), "logs", "review-bridge.log")

	logger, closeLog, err := setup(&buf, false, logFile, "debug")
	require.NoError(t, err)
	t.Cleanup(func() { _ = closeLog() })

	logger.With("delivery", "d1").Debug("dispatching")

	assert.Contains(t, buf.String(), "delivery=d1")
	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "dispatching")
	assert.Contains(t, string(data), "delivery=d1")
}

func TestFanout_RespectsEachLevel(t *testing.T) {
	var quiet, verbose bytes.Buffer
	h := fanout{
		slog.NewTextHandler(&quiet, &slog.HandlerOptions{Level: slog.LevelWarn}),
		slog.NewTextHandler(&verbose, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
	logger := slog.New(h).WithGroup("req")

	logger.Info("only verbose", "id", 1)

	assert.Empty(t, quiet.String())
	assert.Contains(t, verbose.String(), "req.id=1")
}
