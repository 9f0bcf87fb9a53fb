package main

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmdlab/headtrack/internal/calibfile"
	"github.com/hmdlab/headtrack/internal/dispatcher"
	"github.com/hmdlab/headtrack/internal/export"
	"github.com/hmdlab/headtrack/internal/feed"
	"github.com/hmdlab/headtrack/internal/influx"
	"github.com/hmdlab/headtrack/internal/session"
	"github.com/hmdlab/headtrack/internal/storage"
	"github.com/hmdlab/headtrack/pkg/core"
	"github.com/hmdlab/headtrack/pkg/streaming"
)

type commandDeps struct {
	ctrl    *session.Controller
	backend storage.Backend
	influx  *influx.Manager
	feed    *feed.Server
	log     zerolog.Logger
}

// registerCommands binds every control-channel command to its handler.
// Export commands run buffered so file writes never block the feed's read
// loop.
func registerCommands(d *dispatcher.Dispatcher, deps commandDeps) {
	d.Register(streaming.CmdStartTracking, func(e dispatcher.Event) (any, error) {
		return "started", deps.ctrl.Start()
	}, dispatcher.Logged())

	d.Register(streaming.CmdStopTracking, func(e dispatcher.Event) (any, error) {
		return "stopped", deps.ctrl.Stop()
	}, dispatcher.Logged())

	d.Register(streaming.CmdResetSession, func(e dispatcher.Event) (any, error) {
		deps.ctrl.Reset()
		return "reset", nil
	}, dispatcher.Logged())

	d.Register(streaming.CmdRecenter, func(e dispatcher.Event) (any, error) {
		return "recentered", deps.ctrl.Recenter()
	}, dispatcher.Logged())

	d.Register(streaming.CmdMetrics, func(e dispatcher.Event) (any, error) {
		snap, err := deps.ctrl.Metrics()
		if err != nil {
			return nil, err
		}
		if deps.influx != nil {
			var tag string
			if info := deps.ctrl.Info(); info != nil {
				tag = info.Tag
			}
			point := influx.MetricsPoint(tag, snap)
			if werr := deps.influx.WritePoint(context.Background(), influx.BucketSessions, point); werr != nil {
				deps.log.Debug().Err(werr).Msg("Error shipping metrics point")
			}
		}
		return snap, nil
	})

	d.Register(streaming.CmdStartCalibration, func(e dispatcher.Event) (any, error) {
		if err := deps.ctrl.Calibration().Start(); err != nil {
			return nil, err
		}
		return deps.ctrl.Calibration().Progress(), nil
	}, dispatcher.Logged())

	d.Register(streaming.CmdAbortCalibration, func(e dispatcher.Event) (any, error) {
		if err := deps.ctrl.Calibration().Abort(); err != nil {
			return nil, err
		}
		return deps.ctrl.Calibration().Progress(), nil
	}, dispatcher.Logged())

	d.Register(streaming.CmdCalibrationStatus, func(e dispatcher.Event) (any, error) {
		return deps.ctrl.Calibration().Progress(), nil
	})

	d.Register(streaming.CmdSaveCalibration, func(e dispatcher.Event) (any, error) {
		path, err := pathFromArgs(e.Args)
		if err != nil {
			return nil, err
		}

		record, err := deps.ctrl.Calibration().Record(
			time.Now().UTC().Format(time.RFC3339), deps.ctrl.Bounds())
		if err != nil {
			return nil, err
		}

		if err := calibfile.Save(path, record); err != nil {
			return nil, err
		}
		deps.ctrl.ApplyCalibration(record)
		if err := deps.backend.SaveCalibration(record); err != nil {
			deps.log.Error().Err(err).Msg("Error persisting calibration record")
		}

		// The run is consumed by the save; the sequencer returns to idle.
		if err := deps.ctrl.Calibration().Acknowledge(); err != nil {
			return nil, err
		}
		deps.log.Info().Str("path", path).Msg("Calibration saved")
		return path, nil
	}, dispatcher.Logged())

	d.Register(streaming.CmdLoadCalibration, func(e dispatcher.Event) (any, error) {
		path, err := pathFromArgs(e.Args)
		if err != nil {
			return nil, err
		}

		record, err := calibfile.Load(path)
		if err != nil {
			return nil, err
		}

		// A load fully replaces the active calibration and its bounds.
		deps.ctrl.ApplyCalibration(record)
		if deps.feed != nil {
			deps.feed.BroadcastBounds()
		}
		deps.log.Info().Str("path", path).Str("timestamp", record.Timestamp).
			Msg("Calibration loaded")
		return record, nil
	}, dispatcher.Logged())

	d.Register(streaming.CmdExportSamples, func(e dispatcher.Event) (any, error) {
		path, err := pathFromArgs(e.Args)
		if err != nil {
			return nil, err
		}
		if err := export.WriteCSVFile(path, deps.ctrl.Samples()); err != nil {
			return nil, err
		}
		deps.log.Info().Str("path", path).Msg("Samples exported")
		return path, nil
	}, dispatcher.Buffered(8), dispatcher.Logged())

	d.Register(streaming.CmdWriteReport, func(e dispatcher.Event) (any, error) {
		path, err := pathFromArgs(e.Args)
		if err != nil {
			return nil, err
		}
		err = export.WriteReportFile(path, deps.ctrl.Samples(), deps.ctrl.Bounds(), time.Now())
		if err != nil {
			return nil, err
		}
		deps.log.Info().Str("path", path).Msg("Report written")
		return path, nil
	}, dispatcher.Buffered(8), dispatcher.Logged())

	d.Register(streaming.CmdSetBounds, func(e dispatcher.Event) (any, error) {
		var bounds core.TrackingBounds
		if err := json.Unmarshal(e.Args, &bounds); err != nil {
			return nil, fmt.Errorf("malformed bounds: %w", err)
		}
		if bounds.XMin >= bounds.XMax || bounds.YMin >= bounds.YMax || bounds.ZMin >= bounds.ZMax {
			return nil, fmt.Errorf("degenerate bounds")
		}
		deps.ctrl.SetBounds(bounds)
		if deps.feed != nil {
			deps.feed.BroadcastBounds()
		}
		return bounds, nil
	}, dispatcher.Logged())
}

func pathFromArgs(args json.RawMessage) (string, error) {
	var pa streaming.PathArgs
	if err := json.Unmarshal(args, &pa); err != nil || pa.Path == "" {
		return "", fmt.Errorf("command requires a path argument")
	}
	return pa.Path, nil
}
