package logging

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"debug": zerolog.DebugLevel,
		"DEBUG": zerolog.DebugLevel,
		"info":  zerolog.InfoLevel,
		"warn":  zerolog.WarnLevel,
		"error": zerolog.ErrorLevel,
		"trace": zerolog.TraceLevel,
		"bogus": zerolog.InfoLevel,
		"":      zerolog.InfoLevel,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseLevel(in), "input %q", in)
	}
}

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 8, 27, 9, 15, 30, 0, time.UTC)
	path := LogFilePath("logs", "headtrackd", start)
	assert.Equal(t, filepath.Join("logs", "headtrackd.20260827_091530.log"), path)
}

func TestSetup_WritesLogFile(t *testing.T) {
	dir := t.TempDir()
	start := time.Now()

	logger, cleanup, err := Setup(Config{Level: "debug", LogsDir: dir}, "headtrackd", start)
	require.NoError(t, err)

	logger.Info().Str("source", "sim").Msg("session started")
	cleanup()

	data, err := os.ReadFile(LogFilePath(dir, "headtrackd", start))
	require.NoError(t, err)
	assert.Contains(t, string(data), "session started")
	assert.Contains(t, string(data), "source=sim")
}

func TestSetup_CreatesLogsDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")

	_, cleanup, err := Setup(Config{Level: "info", LogsDir: dir}, "headtrackd", time.Now())
	require.NoError(t, err)
	cleanup()

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
