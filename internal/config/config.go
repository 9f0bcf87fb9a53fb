// Package config loads daemon configuration from a JSON file via viper and
// exposes typed section getters.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/hmdlab/headtrack/pkg/core"
)

// SessionConfig holds sampling loop settings.
type SessionConfig struct {
	TickInterval time.Duration
	RawBuffer    int
	TrailBuffer  int
	FrameBuffer  int
	Source       string
	Tag          string
}

// CalibrationConfig holds the dwell acceptance policy.
type CalibrationConfig struct {
	Tolerance float64
	Dwell     time.Duration
}

// ProjectionConfig holds the screen mapping for the visualization feed.
type ProjectionConfig struct {
	CenterX float64
	CenterY float64
	Scale   float64
}

// MemoryConfig holds in-memory/JSON storage backend settings.
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// DBConfig holds database storage backend settings.
type DBConfig struct {
	FlushInterval time.Duration
	SqlitePath    string
}

// StorageConfig selects and configures the storage backend.
type StorageConfig struct {
	Type   string
	Memory MemoryConfig
	DB     DBConfig
}

// FeedConfig holds the live visualization feed settings.
type FeedConfig struct {
	Enabled    bool
	ListenAddr string
	Interval   time.Duration
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	// Set default values
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./logs")
	viper.SetDefault("tag", "Session")

	viper.SetDefault("session.tickInterval", "16ms")
	viper.SetDefault("session.rawBuffer", 1000)
	viper.SetDefault("session.trailBuffer", 100)
	viper.SetDefault("session.frameBuffer", 60)
	viper.SetDefault("session.source", "sim")

	viper.SetDefault("metrics.window", 100)

	viper.SetDefault("calibration.tolerance", 0.15)
	viper.SetDefault("calibration.dwell", "3s")

	viper.SetDefault("bounds.xMin", -2.0)
	viper.SetDefault("bounds.xMax", 2.0)
	viper.SetDefault("bounds.yMin", -1.5)
	viper.SetDefault("bounds.yMax", 1.5)
	viper.SetDefault("bounds.zMin", 0.5)
	viper.SetDefault("bounds.zMax", 3.0)

	viper.SetDefault("projection.centerX", 400.0)
	viper.SetDefault("projection.centerY", 300.0)
	viper.SetDefault("projection.scale", 100.0)

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./sessions")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.db.flushInterval", "5s")
	viper.SetDefault("storage.db.sqlitePath", "./headtrack.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "headtrack")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "")
	viper.SetDefault("influx.org", "headtrack-metrics")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "headtrackd")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", false)

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("feed.enabled", true)
	viper.SetDefault("feed.listenAddr", ":8080")
	viper.SetDefault("feed.interval", "16ms")

	viper.SetConfigName("headtrackd.cfg.json")
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetSessionConfig returns the sampling loop configuration.
func GetSessionConfig() SessionConfig {
	return SessionConfig{
		TickInterval: viper.GetDuration("session.tickInterval"),
		RawBuffer:    viper.GetInt("session.rawBuffer"),
		TrailBuffer:  viper.GetInt("session.trailBuffer"),
		FrameBuffer:  viper.GetInt("session.frameBuffer"),
		Source:       viper.GetString("session.source"),
		Tag:          viper.GetString("tag"),
	}
}

// GetCalibrationConfig returns the dwell acceptance policy.
func GetCalibrationConfig() CalibrationConfig {
	return CalibrationConfig{
		Tolerance: viper.GetFloat64("calibration.tolerance"),
		Dwell:     viper.GetDuration("calibration.dwell"),
	}
}

// GetBounds returns the configured tracking volume.
func GetBounds() core.TrackingBounds {
	return core.TrackingBounds{
		XMin: viper.GetFloat64("bounds.xMin"),
		XMax: viper.GetFloat64("bounds.xMax"),
		YMin: viper.GetFloat64("bounds.yMin"),
		YMax: viper.GetFloat64("bounds.yMax"),
		ZMin: viper.GetFloat64("bounds.zMin"),
		ZMax: viper.GetFloat64("bounds.zMax"),
	}
}

// GetProjectionConfig returns the screen mapping.
func GetProjectionConfig() ProjectionConfig {
	return ProjectionConfig{
		CenterX: viper.GetFloat64("projection.centerX"),
		CenterY: viper.GetFloat64("projection.centerY"),
		Scale:   viper.GetFloat64("projection.scale"),
	}
}

// GetStorageConfig returns the storage backend configuration.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		DB: DBConfig{
			FlushInterval: viper.GetDuration("storage.db.flushInterval"),
			SqlitePath:    viper.GetString("storage.db.sqlitePath"),
		},
	}
}

// GetFeedConfig returns the live feed configuration.
func GetFeedConfig() FeedConfig {
	return FeedConfig{
		Enabled:    viper.GetBool("feed.enabled"),
		ListenAddr: viper.GetString("feed.listenAddr"),
		Interval:   viper.GetDuration("feed.interval"),
	}
}
