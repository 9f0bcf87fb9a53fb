// Package calibration implements the target-point sequencing state machine.
// A run walks a fixed ordered list of nine targets spanning the tracking
// volume; each target is accepted only after the measured position has stayed
// inside a tolerance sphere for a minimum dwell duration.
package calibration

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hmdlab/headtrack/pkg/core"
)

// Sequencer state machine errors.
var (
	ErrAlreadyRunning = errors.New("calibration already running")
	ErrNotRunning     = errors.New("calibration not running")
	ErrNotCompleted   = errors.New("calibration not completed")
)

// State of a calibration run.
type State int

const (
	Idle State = iota
	Running
	Completed
)

// String returns the state name for status display.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Completed:
		return "completed"
	default:
		return "unknown"
	}
}

// Config holds the dwell acceptance policy. Both values are deliberate
// configuration, not hidden constants.
type Config struct {
	// Tolerance is the acceptance sphere radius around each target, meters.
	Tolerance float64

	// Dwell is the minimum continuous time the position must stay inside the
	// tolerance sphere, measured on sample timestamps.
	Dwell time.Duration
}

// DefaultConfig returns the reference policy: 0.15 m tolerance, 3 s dwell.
func DefaultConfig() Config {
	return Config{Tolerance: 0.15, Dwell: 3 * time.Second}
}

// DefaultTargets is the fixed nine-point sequence: volume center plus eight
// surrounding positions spanning the bounds.
func DefaultTargets() []core.CalibrationPoint {
	targets := []core.Vec3{
		{X: 0, Y: 0, Z: 1.5}, // center
		{X: -1, Y: -0.5, Z: 1.0},
		{X: 1, Y: -0.5, Z: 1.0},
		{X: -1, Y: 0.5, Z: 2.0},
		{X: 1, Y: 0.5, Z: 2.0},
		{X: 0, Y: -1, Z: 1.5},
		{X: 0, Y: 1, Z: 1.5},
		{X: 0, Y: 0, Z: 0.8},
		{X: 0, Y: 0, Z: 2.2},
	}
	points := make([]core.CalibrationPoint, len(targets))
	for i, t := range targets {
		points[i] = core.CalibrationPoint{Index: i, Target: t}
	}
	return points
}

// Progress is a snapshot of a run for presentation.
type Progress struct {
	State    State  `json:"-"`
	StateStr string `json:"state"`
	Index    int    `json:"index"`
	Total    int    `json:"total"`

	// Failures counts dwells broken before the minimum duration at the
	// current target. The sequencer retries the same point indefinitely;
	// this is display information, never a skip trigger.
	Failures int    `json:"failures"`
	Status   string `json:"status"`
}

// Sequencer walks the target list. It owns the list; the list is immutable
// during a run. Drive it by feeding the live pose stream into Observe.
type Sequencer struct {
	mu      sync.Mutex
	cfg     Config
	state   State
	targets []core.CalibrationPoint
	index   int

	inDwell    bool
	dwellStart float64 // sample timestamp when the current dwell began
	failures   int

	samples []core.CalibrationSample
}

// NewSequencer creates a sequencer over the default nine targets.
func NewSequencer(cfg Config) *Sequencer {
	if cfg.Tolerance <= 0 || cfg.Dwell <= 0 {
		cfg = DefaultConfig()
	}
	return &Sequencer{cfg: cfg, targets: DefaultTargets()}
}

// State returns the current run state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start begins a run from Idle, resetting progress to 0 of N.
func (s *Sequencer) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Running {
		return ErrAlreadyRunning
	}
	if s.state == Completed {
		return fmt.Errorf("previous run not acknowledged: %w", ErrAlreadyRunning)
	}

	s.state = Running
	s.index = 0
	s.inDwell = false
	s.failures = 0
	s.samples = nil
	return nil
}

// Abort discards the in-progress run and returns to Idle.
func (s *Sequencer) Abort() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return ErrNotRunning
	}
	s.state = Idle
	s.index = 0
	s.inDwell = false
	s.failures = 0
	s.samples = nil
	return nil
}

// Acknowledge returns a Completed sequencer to Idle so a new run can start.
// No-op while Idle; fails while Running (use Abort).
func (s *Sequencer) Acknowledge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == Running {
		return ErrAlreadyRunning
	}
	s.state = Idle
	return nil
}

// Observe feeds one live pose sample into the run and reports whether the
// current target was accepted. Outside Running it does nothing.
//
// A sample outside the tolerance sphere, or one the source flags as not
// tracked, breaks the dwell; the same target is retried with a fresh dwell
// clock. Sustaining tolerance for at least the minimum dwell (measured on
// sample timestamps) accepts the point, records the measured pose against the
// target and advances. When the last target is accepted the run completes.
func (s *Sequencer) Observe(sample core.PoseSample) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Running {
		return false
	}

	target := s.targets[s.index]

	if !sample.Valid || sample.Position.DistanceTo(target.Target) > s.cfg.Tolerance {
		if s.inDwell {
			s.failures++
		}
		s.inDwell = false
		return false
	}

	if !s.inDwell {
		s.inDwell = true
		s.dwellStart = sample.Timestamp
		return false
	}

	if sample.Timestamp-s.dwellStart < s.cfg.Dwell.Seconds() {
		return false
	}

	s.samples = append(s.samples, core.CalibrationSample{
		Point:    target,
		Measured: sample,
	})
	s.index++
	s.inDwell = false
	s.failures = 0

	if s.index == len(s.targets) {
		s.state = Completed
	}
	return true
}

// Progress returns a presentation snapshot of the run.
func (s *Sequencer) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := Progress{
		State:    s.state,
		StateStr: s.state.String(),
		Index:    s.index,
		Total:    len(s.targets),
		Failures: s.failures,
	}
	switch s.state {
	case Idle:
		p.Status = "ready to calibrate"
	case Running:
		t := s.targets[s.index].Target
		p.Status = fmt.Sprintf("hold steady at point %d of %d (%.1f, %.1f, %.1f)",
			s.index+1, p.Total, t.X, t.Y, t.Z)
	case Completed:
		p.Status = "calibration complete"
	}
	return p
}

// Record builds a CalibrationRecord candidate from a completed run with the
// bounds in effect. The actual save is a separate explicit action.
func (s *Sequencer) Record(timestamp string, bounds core.TrackingBounds) (*core.CalibrationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Completed {
		return nil, ErrNotCompleted
	}

	points := make([]core.CalibrationPoint, len(s.targets))
	copy(points, s.targets)
	samples := make([]core.CalibrationSample, len(s.samples))
	copy(samples, s.samples)

	return &core.CalibrationRecord{
		Timestamp: timestamp,
		Points:    points,
		Samples:   samples,
		Bounds:    bounds,
	}, nil
}
