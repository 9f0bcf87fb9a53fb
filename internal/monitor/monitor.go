// Package monitor runs the 1 Hz daemon status loop: a status file on disk
// for quick inspection plus a performance point shipped to InfluxDB.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hmdlab/headtrack/internal/influx"
	"github.com/hmdlab/headtrack/internal/session"
	"github.com/hmdlab/headtrack/internal/storage"
)

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Controller *session.Controller
	Backend    storage.Backend
	Influx     *influx.Manager
	Logger     zerolog.Logger
	StatusDir  string
}

// Status is the line written to the status file each second.
type Status struct {
	Time        string  `json:"time"`
	Running     bool    `json:"running"`
	FPS         float64 `json:"fps"`
	SampleCount int     `json:"sampleCount"`
	TrailDepth  int     `json:"trailDepth"`
	Simulated   bool    `json:"simulated"`
	LastWriteMs float64 `json:"lastWriteMs"`
}

// Service manages status monitoring.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Collect builds the current status from the controller and backend.
func (s *Service) Collect() Status {
	st := Status{
		Time:    time.Now().UTC().Format(time.RFC3339),
		Running: s.deps.Controller.Running(),
	}

	if snap := s.deps.Controller.Snapshot(); snap != nil {
		st.FPS = snap.FPS
		st.SampleCount = snap.SampleCount
		st.Simulated = snap.Simulated
	}
	st.TrailDepth = len(s.deps.Controller.Trail())

	if wp, ok := s.deps.Backend.(storage.WriteDurationProvider); ok {
		st.LastWriteMs = wp.GetLastWriteDuration()
	}
	return st
}

// Start starts the status monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug().Msg("Starting status monitor goroutine")

		statusFile, err := os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
		if err != nil {
			s.deps.Logger.Error().Err(err).Msg("Error creating status file")
		}
		defer statusFile.Close()

		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
				st := s.Collect()

				if statusFile != nil {
					data, err := json.MarshalIndent(st, "", "  ")
					if err != nil {
						data = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
					}
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					statusFile.Write(append(data, '\n'))
				}

				if s.deps.Influx != nil {
					var tag string
					if info := s.deps.Controller.Info(); info != nil {
						tag = info.Tag
					}
					point := influx.StatusPoint(tag, st.FPS, st.SampleCount, st.TrailDepth, st.LastWriteMs)
					if err := s.deps.Influx.WritePoint(context.Background(), influx.BucketPerformance, point); err != nil {
						s.deps.Logger.Debug().Err(err).Msg("Error shipping status point")
					}
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}
