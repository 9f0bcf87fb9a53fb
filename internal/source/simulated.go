package source

import (
	"math"
	"sync"
	"time"

	"github.com/hmdlab/headtrack/pkg/core"
)

// Simulated generates a smooth deterministic head path: slow sinusoids on
// each axis around a standing position ~1.5 m from the sensor. Timestamps are
// monotonic seconds from the source's own epoch.
type Simulated struct {
	mu    sync.Mutex
	epoch time.Time
	now   func() time.Time
}

// NewSimulated creates a simulator with its epoch at construction time.
func NewSimulated() *Simulated {
	return &Simulated{
		epoch: time.Now(),
		now:   time.Now,
	}
}

// NewSimulatedAt creates a simulator with an injected clock, for tests.
func NewSimulatedAt(epoch time.Time, now func() time.Time) *Simulated {
	return &Simulated{epoch: epoch, now: now}
}

// ReadPose returns the simulated pose at the current clock time. Simulated
// poses report Valid=true: the simulator is always "tracking" its own path.
func (s *Simulated) ReadPose() (core.PoseSample, error) {
	s.mu.Lock()
	t := s.now().Sub(s.epoch).Seconds()
	s.mu.Unlock()

	return PoseAt(t), nil
}

// PoseAt returns the canonical simulated pose for elapsed time t seconds.
// It is exported so the session loop can generate fallback samples on the
// same path when a device source fails.
func PoseAt(t float64) core.PoseSample {
	return core.PoseSample{
		Timestamp: t,
		Position: core.Vec3{
			X: 0.5 * math.Sin(t*0.5),
			Y: 0.3 * math.Sin(t*0.3),
			Z: 1.5 + 0.2*math.Sin(t*0.7),
		},
		Orientation: core.Quat{X: 0, Y: math.Sin(t*0.2) * 0.1, Z: 0, W: 1},
		Valid:       true,
	}
}

// Recenter succeeds without doing anything: the simulator has no external
// reference frame to shift.
func (s *Simulated) Recenter() error { return nil }

// Close is a no-op.
func (s *Simulated) Close() error { return nil }
