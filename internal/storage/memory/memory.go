// Package memory stores a tracking session in memory and exports it as a
// JSON file when the session ends.
package memory

import (
	"sync"

	"github.com/hmdlab/headtrack/internal/config"
	"github.com/hmdlab/headtrack/pkg/core"
)

// SessionExport is the root JSON structure written on EndSession.
type SessionExport struct {
	Info         core.SessionInfo         `json:"info"`
	Bounds       core.TrackingBounds      `json:"tracking_bounds"`
	SampleCount  int                      `json:"sampleCount"`
	Samples      []core.PoseSample        `json:"samples"`
	Calibrations []core.CalibrationRecord `json:"calibrations,omitempty"`
}

// Backend accumulates session data in memory.
type Backend struct {
	cfg config.MemoryConfig

	mu           sync.Mutex
	info         *core.SessionInfo
	bounds       core.TrackingBounds
	samples      []core.PoseSample
	calibrations []core.CalibrationRecord

	lastExportPath string
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{cfg: cfg}
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session, dropping any previous one.
func (b *Backend) StartSession(info *core.SessionInfo, bounds core.TrackingBounds) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.info = info
	b.bounds = bounds
	b.samples = nil
	b.calibrations = nil
	return nil
}

// EndSession finalizes and exports the session data.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.info == nil {
		return nil
	}
	return b.exportJSON()
}

// RecordSample appends one sample.
func (b *Backend) RecordSample(s *core.PoseSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.samples = append(b.samples, *s)
	return nil
}

// SaveCalibration appends a completed calibration record.
func (b *Backend) SaveCalibration(r *core.CalibrationRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.calibrations = append(b.calibrations, *r)
	return nil
}

// GetExportedFilePath returns the path of the last exported session file,
// empty until the first export.
func (b *Backend) GetExportedFilePath() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastExportPath
}
