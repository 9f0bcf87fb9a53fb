// Package storage defines the persistence boundary of the session engine and
// a factory over its backends.
package storage

import "github.com/hmdlab/headtrack/pkg/core"

// Backend is the interface all storage implementations must satisfy. The
// session controller forwards every sample; calibration saves are explicit.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management
	StartSession(info *core.SessionInfo, bounds core.TrackingBounds) error
	EndSession() error

	// Recording
	RecordSample(s *core.PoseSample) error
	SaveCalibration(r *core.CalibrationRecord) error
}

// Exportable is an optional interface for backends that produce a session
// file on EndSession.
type Exportable interface {
	GetExportedFilePath() string
}

// WriteDurationProvider is an optional interface for backends that can
// expose their last write-cycle duration for monitoring.
type WriteDurationProvider interface {
	GetLastWriteDuration() float64 // milliseconds
}
