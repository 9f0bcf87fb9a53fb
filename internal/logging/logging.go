// Package logging sets up the process-wide zerolog logger: console plus a
// session log file, with an optional Graylog GELF sink.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Graylog2/go-gelf/gelf"
	"github.com/rs/zerolog"
)

// Config holds logger settings, normally sourced from viper.
type Config struct {
	Level          string
	LogsDir        string
	GraylogEnabled bool
	GraylogAddr    string
}

// LogFilePath builds a log file path using OS-appropriate path separators.
func LogFilePath(logsDir, name string, sessionStart time.Time) string {
	return filepath.Join(
		logsDir,
		fmt.Sprintf("%s.%s.log", name, sessionStart.Format("20060102_150405")),
	)
}

// ParseLevel maps a config string to a zerolog level, defaulting to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return zerolog.DebugLevel
	case "INFO":
		return zerolog.InfoLevel
	case "WARN":
		return zerolog.WarnLevel
	case "ERROR":
		return zerolog.ErrorLevel
	case "TRACE":
		return zerolog.TraceLevel
	default:
		return zerolog.InfoLevel
	}
}

// Setup builds the root logger. It writes console format with colors to
// stdout and without colors to a session log file under cfg.LogsDir. When
// Graylog is enabled a GELF writer joins the multi-level writer; a Graylog
// connection failure downgrades to local-only logging rather than failing
// startup.
func Setup(cfg Config, name string, sessionStart time.Time) (zerolog.Logger, func(), error) {
	zerolog.SetGlobalLevel(ParseLevel(cfg.Level))
	zerolog.TimestampFunc = func() time.Time {
		return time.Now().UTC()
	}

	if err := os.MkdirAll(cfg.LogsDir, 0755); err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("create logs dir: %w", err)
	}
	file, err := os.Create(LogFilePath(cfg.LogsDir, name, sessionStart))
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("create log file: %w", err)
	}

	writers := []io.Writer{
		// console format with colors to console
		zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		},
		// console format without colors to file
		zerolog.ConsoleWriter{
			Out:        file,
			TimeFormat: time.RFC3339,
			NoColor:    true,
		},
	}

	var graylog *gelf.Writer
	if cfg.GraylogEnabled {
		graylog, err = gelf.NewWriter(cfg.GraylogAddr)
		if err == nil {
			writers = append(writers, graylog)
		}
	}

	logger := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		With().Timestamp().Logger()

	if cfg.GraylogEnabled && graylog == nil {
		logger.Warn().Str("addr", cfg.GraylogAddr).
			Msg("Graylog unreachable, logging locally only")
	}

	cleanup := func() {
		file.Close()
		if graylog != nil {
			graylog.Close()
		}
	}
	return logger, cleanup, nil
}
