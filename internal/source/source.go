// Package source abstracts where pose samples come from: a real head-mounted
// device driver or a deterministic simulator. The session engine never
// branches on which variant is active except through the error and validity
// contract defined here.
package source

import (
	"errors"
	"fmt"

	"github.com/hmdlab/headtrack/pkg/core"
)

// ErrSourceUnavailable is returned when the device or simulator cannot
// produce a sample. The session loop substitutes a flagged simulated sample
// so sampling never stalls.
var ErrSourceUnavailable = errors.New("pose source unavailable")

// PoseSource supplies one pose sample on demand.
type PoseSource interface {
	// ReadPose returns the current pose. Implementations must return
	// ErrSourceUnavailable (possibly wrapped) when no sample can be produced.
	ReadPose() (core.PoseSample, error)

	// Recenter asks the source to re-zero its reference frame.
	Recenter() error

	// Close releases the underlying device session, if any.
	Close() error
}

// New creates a pose source by kind. "sim" is the deterministic simulator;
// "device" is the vendor-driver binding, which is supplied externally and is
// unavailable in this build.
func New(kind string) (PoseSource, error) {
	switch kind {
	case "sim", "":
		return NewSimulated(), nil
	case "device":
		return &Device{}, nil
	default:
		return nil, fmt.Errorf("unknown pose source kind: %s", kind)
	}
}

// Device is the placeholder for the vendor SDK binding. The low-level device
// protocol is an external collaborator; without it every read reports
// ErrSourceUnavailable and the session falls back to simulated samples.
type Device struct{}

// ReadPose always fails: no vendor runtime is linked into this build.
func (d *Device) ReadPose() (core.PoseSample, error) {
	return core.PoseSample{}, fmt.Errorf("device driver not attached: %w", ErrSourceUnavailable)
}

// Recenter fails for the same reason.
func (d *Device) Recenter() error {
	return fmt.Errorf("device driver not attached: %w", ErrSourceUnavailable)
}

// Close is a no-op.
func (d *Device) Close() error { return nil }
