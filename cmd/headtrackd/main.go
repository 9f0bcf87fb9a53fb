// headtrackd runs the head-tracking session engine: it samples a pose source
// at a fixed rate, maintains the session buffers and calibration state, and
// serves the live visualization feed over WebSocket.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/hmdlab/headtrack/internal/calibration"
	"github.com/hmdlab/headtrack/internal/config"
	"github.com/hmdlab/headtrack/internal/dispatcher"
	"github.com/hmdlab/headtrack/internal/feed"
	"github.com/hmdlab/headtrack/internal/influx"
	"github.com/hmdlab/headtrack/internal/logging"
	"github.com/hmdlab/headtrack/internal/metrics"
	"github.com/hmdlab/headtrack/internal/monitor"
	intOtel "github.com/hmdlab/headtrack/internal/otel"
	"github.com/hmdlab/headtrack/internal/projection"
	"github.com/hmdlab/headtrack/internal/session"
	"github.com/hmdlab/headtrack/internal/source"
	"github.com/hmdlab/headtrack/internal/storage"
)

// Version can be set at build time via ldflags.
var (
	Version   = "0.0.1"
	BuildDate = "unknown"
)

const daemonName = "headtrackd"

func main() {
	configDir := flag.String("config", ".", "directory containing headtrackd.cfg.json")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s (built %s)\n", daemonName, Version, BuildDate)
		return
	}

	if err := run(*configDir); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", daemonName, err)
		os.Exit(1)
	}
}

func run(configDir string) error {
	sessionStart := time.Now()

	configErr := config.Load(configDir)

	logger, logCleanup, err := logging.Setup(logging.Config{
		Level:          viper.GetString("logLevel"),
		LogsDir:        viper.GetString("logsDir"),
		GraylogEnabled: viper.GetBool("graylog.enabled"),
		GraylogAddr:    viper.GetString("graylog.address"),
	}, daemonName, sessionStart)
	if err != nil {
		return err
	}
	defer logCleanup()

	if configErr != nil {
		logger.Warn().Err(configErr).Msg("Failed to load config file, using defaults")
	} else {
		logger.Info().Str("dir", configDir).Msg("Loaded config")
	}
	logger.Info().Str("version", Version).Str("buildDate", BuildDate).Msg("Starting")

	otelCleanup, err := setupOTel(logger, sessionStart)
	if err != nil {
		logger.Warn().Err(err).Msg("OTel setup failed, continuing without it")
	} else {
		defer otelCleanup()
	}

	// Storage
	storageCfg := config.GetStorageConfig()
	backend, err := storage.NewBackend(storageCfg, logger)
	if err != nil {
		return fmt.Errorf("create storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("init storage backend: %w", err)
	}
	defer backend.Close()
	logger.Info().Str("type", storageCfg.Type).Msg("Storage backend initialized")

	// Pose source
	sessionCfg := config.GetSessionConfig()
	src, err := source.New(sessionCfg.Source)
	if err != nil {
		return fmt.Errorf("create pose source: %w", err)
	}
	defer src.Close()

	// Session engine
	calCfg := config.GetCalibrationConfig()
	sequencer := calibration.NewSequencer(calibration.Config{
		Tolerance: calCfg.Tolerance,
		Dwell:     calCfg.Dwell,
	})
	engine := metrics.New(config.GetInt("metrics.window"))

	ctrl, err := session.New(sessionCfg, logger, src, sequencer, engine, backend, config.GetBounds())
	if err != nil {
		return fmt.Errorf("create session controller: %w", err)
	}

	// Stats shipping
	var influxMgr *influx.Manager
	if viper.GetBool("influx.enabled") {
		backupPath := logging.LogFilePath(viper.GetString("logsDir"), daemonName+".influx_backup", sessionStart) + ".gz"
		influxMgr = influx.NewManager(logger, backupPath)
		if err := influxMgr.Connect(); err != nil {
			logger.Warn().Err(err).Msg("InfluxDB unavailable, stats shipping disabled")
			influxMgr = nil
		} else {
			defer influxMgr.Close()
		}
	}

	// Control channel
	disp, err := dispatcher.New(logging.NewDispatcherLogger(logger))
	if err != nil {
		return fmt.Errorf("create dispatcher: %w", err)
	}

	projCfg := config.GetProjectionConfig()
	proj := projection.Params{
		CenterX: projCfg.CenterX,
		CenterY: projCfg.CenterY,
		Scale:   projCfg.Scale,
	}

	feedCfg := config.GetFeedConfig()
	var feedSrv *feed.Server
	if feedCfg.Enabled {
		feedSrv = feed.New(feedCfg, logger, ctrl, disp, proj)
	}

	registerCommands(disp, commandDeps{
		ctrl:    ctrl,
		backend: backend,
		influx:  influxMgr,
		feed:    feedSrv,
		log:     logger,
	})

	// Sampling starts immediately; the feed and commands observe it live.
	if err := ctrl.Start(); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	if feedSrv != nil {
		if err := feedSrv.Start(); err != nil {
			return fmt.Errorf("start feed: %w", err)
		}
	}

	monitorSvc := monitor.NewService(monitor.Dependencies{
		Controller: ctrl,
		Backend:    backend,
		Influx:     influxMgr,
		Logger:     logger,
		StatusDir:  viper.GetString("logsDir"),
	})
	if err := monitorSvc.Start(); err != nil {
		logger.Warn().Err(err).Msg("Status monitor failed to start")
	}

	// Run until interrupted.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	received := <-sig
	logger.Info().Str("signal", received.String()).Msg("Shutting down")

	monitorSvc.Stop()

	if feedSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := feedSrv.Stop(ctx); err != nil {
			logger.Warn().Err(err).Msg("Feed shutdown error")
		}
	}

	if err := ctrl.Stop(); err != nil {
		logger.Error().Err(err).Msg("Session stop error")
	}

	if exp, ok := backend.(storage.Exportable); ok {
		if path := exp.GetExportedFilePath(); path != "" {
			logger.Info().Str("path", path).Msg("Session data exported")
		}
	}
	return nil
}

func setupOTel(logger zerolog.Logger, sessionStart time.Time) (func(), error) {
	cfg := intOtel.Config{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}

	var logFile *os.File
	if cfg.Enabled {
		var err error
		logFile, err = os.Create(logging.LogFilePath(viper.GetString("logsDir"), daemonName+".otel", sessionStart))
		if err != nil {
			return nil, err
		}
		cfg.LogWriter = logFile
	}

	provider, err := intOtel.New(cfg)
	if err != nil {
		if logFile != nil {
			logFile.Close()
		}
		return nil, err
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(ctx); err != nil {
			logger.Warn().Err(err).Msg("OTel shutdown error")
		}
		if logFile != nil {
			logFile.Close()
		}
	}
	return cleanup, nil
}
