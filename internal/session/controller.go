// Package session runs the fixed-rate sampling loop and owns the live state
// of one tracking session: the raw sample history, the position and
// orientation trails, the frame interval history and the latest published
// snapshot.
package session

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/hmdlab/headtrack/internal/calibration"
	"github.com/hmdlab/headtrack/internal/config"
	"github.com/hmdlab/headtrack/internal/metrics"
	"github.com/hmdlab/headtrack/internal/ring"
	"github.com/hmdlab/headtrack/internal/source"
	"github.com/hmdlab/headtrack/internal/storage"
	"github.com/hmdlab/headtrack/pkg/core"
)

// ErrAlreadyRunning is returned by Start while the sampling loop is active.
var ErrAlreadyRunning = errors.New("session already running")

// Controller drives the sampling loop and fans samples out to the buffers,
// the calibration sequencer and the storage backend.
type Controller struct {
	cfg       config.SessionConfig
	log       zerolog.Logger
	src       source.PoseSource
	sequencer *calibration.Sequencer
	engine    *metrics.Engine
	backend   storage.Backend

	raw     *ring.Buffer[core.PoseSample]
	trail   *ring.Buffer[core.Vec3]
	orients *ring.Buffer[core.Quat]
	frames  *ring.Buffer[float64]

	// snapshot is the single-slot mailbox read by the feed and monitor.
	// The loop replaces the whole value every tick; readers never block it.
	snapshot atomic.Pointer[core.SessionSnapshot]

	samplesRead     samplesCounter
	substitutedRead samplesCounter

	mu        sync.Mutex
	running   bool
	start     time.Time
	info      *core.SessionInfo
	bounds    core.TrackingBounds
	calRecord *core.CalibrationRecord
	lastStamp float64
	haveStamp bool

	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a stopped controller. backend may be nil when persistence is
// disabled.
func New(cfg config.SessionConfig, log zerolog.Logger, src source.PoseSource,
	seq *calibration.Sequencer, engine *metrics.Engine, backend storage.Backend,
	bounds core.TrackingBounds) (*Controller, error) {

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = 16 * time.Millisecond
	}
	if cfg.RawBuffer <= 0 {
		cfg.RawBuffer = 1000
	}
	if cfg.TrailBuffer <= 0 {
		cfg.TrailBuffer = 100
	}
	if cfg.FrameBuffer <= 0 {
		cfg.FrameBuffer = 60
	}

	c := &Controller{
		cfg:       cfg,
		log:       log,
		src:       src,
		sequencer: seq,
		engine:    engine,
		backend:   backend,
		raw:       ring.New[core.PoseSample](cfg.RawBuffer),
		trail:     ring.New[core.Vec3](cfg.TrailBuffer),
		orients:   ring.New[core.Quat](cfg.TrailBuffer),
		frames:    ring.New[float64](cfg.FrameBuffer),
		bounds:    bounds,
	}

	if err := c.setupMetrics(); err != nil {
		return nil, fmt.Errorf("session metrics: %w", err)
	}
	return c, nil
}

// Start begins the sampling loop. Fails with ErrAlreadyRunning while active.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.start = time.Now()
	c.info = &core.SessionInfo{
		Tag:       c.cfg.Tag,
		Source:    c.cfg.Source,
		StartTime: c.start.UTC().Format(time.RFC3339),
	}
	c.stopChan = make(chan struct{})
	info := *c.info
	bounds := c.bounds
	c.mu.Unlock()

	if c.backend != nil {
		if err := c.backend.StartSession(&info, bounds); err != nil {
			c.mu.Lock()
			c.running = false
			c.mu.Unlock()
			return fmt.Errorf("start session recording: %w", err)
		}
	}

	c.wg.Add(1)
	go c.loop()

	c.log.Info().Str("source", c.cfg.Source).Str("tag", c.cfg.Tag).
		Dur("tick", c.cfg.TickInterval).Msg("Tracking session started")
	return nil
}

// Stop halts the sampling loop and finalizes the storage session. Stopping a
// stopped controller is a no-op.
func (c *Controller) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	close(c.stopChan)
	c.mu.Unlock()

	c.wg.Wait()

	if c.backend != nil {
		if err := c.backend.EndSession(); err != nil {
			return fmt.Errorf("end session recording: %w", err)
		}
	}

	c.log.Info().Int("samples", c.raw.Len()).Msg("Tracking session stopped")
	return nil
}

// Running reports whether the sampling loop is active.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Reset clears every buffer and the published snapshot. The loop, if
// running, keeps going and refills them.
func (c *Controller) Reset() {
	c.raw.Clear()
	c.trail.Clear()
	c.orients.Clear()
	c.frames.Clear()
	c.snapshot.Store(nil)

	c.mu.Lock()
	c.haveStamp = false
	c.mu.Unlock()

	c.log.Info().Msg("Session buffers reset")
}

// Recenter asks the pose source to re-zero its reference frame.
func (c *Controller) Recenter() error {
	return c.src.Recenter()
}

// Snapshot returns the most recently published tick state, or nil before the
// first tick.
func (c *Controller) Snapshot() *core.SessionSnapshot {
	return c.snapshot.Load()
}

// Samples returns a copy of the buffered raw samples, oldest first.
func (c *Controller) Samples() []core.PoseSample {
	return c.raw.Snapshot()
}

// Trail returns a copy of the buffered position trail, oldest first.
func (c *Controller) Trail() []core.Vec3 {
	return c.trail.Snapshot()
}

// OrientationTrail returns a copy of the buffered orientation trail, oldest
// first.
func (c *Controller) OrientationTrail() []core.Quat {
	return c.orients.Snapshot()
}

// Metrics computes a fresh metrics snapshot over the buffered samples.
func (c *Controller) Metrics() (core.MetricsSnapshot, error) {
	return c.engine.Compute(c.raw.Snapshot())
}

// Calibration returns the sequencer the loop feeds.
func (c *Controller) Calibration() *calibration.Sequencer {
	return c.sequencer
}

// Bounds returns the active tracking volume.
func (c *Controller) Bounds() core.TrackingBounds {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bounds
}

// SetBounds replaces the active tracking volume. Bounds are a presentation
// overlay; changing them never touches buffered samples.
func (c *Controller) SetBounds(b core.TrackingBounds) {
	c.mu.Lock()
	c.bounds = b
	c.mu.Unlock()
}

// ActiveCalibration returns the calibration record currently applied, nil
// until a calibration has been saved or loaded.
func (c *Controller) ActiveCalibration() *core.CalibrationRecord {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calRecord
}

// ApplyCalibration replaces the active calibration record and the bounds it
// carries in one step. There are no merge semantics: the previous record is
// fully superseded.
func (c *Controller) ApplyCalibration(r *core.CalibrationRecord) {
	c.mu.Lock()
	c.calRecord = r
	c.bounds = r.Bounds
	c.mu.Unlock()
}

// Info returns the identity of the current or most recent session, nil if
// the controller never started.
func (c *Controller) Info() *core.SessionInfo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.info
}

func (c *Controller) loop() {
	defer c.wg.Done()

	ticker := time.NewTicker(c.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopChan:
			return
		case <-ticker.C:
			c.tick()
		}
	}
}

// tick reads one sample and fans it out. A source failure substitutes a
// simulated sample flagged Valid=false so the loop never stalls and
// substituted data can never pass for real tracking.
func (c *Controller) tick() {
	sample, err := c.src.ReadPose()
	simulated := false
	if err != nil {
		sample = c.fallbackSample()
		simulated = true
		c.substitutedRead.add()
	}
	c.samplesRead.add()

	c.mu.Lock()
	if c.haveStamp && sample.Timestamp > c.lastStamp {
		c.frames.Push(sample.Timestamp - c.lastStamp)
	}
	c.lastStamp = sample.Timestamp
	c.haveStamp = true
	c.mu.Unlock()

	c.raw.Push(sample)
	c.trail.Push(sample.Position)
	c.orients.Push(sample.Orientation)
	c.sequencer.Observe(sample)

	if c.backend != nil {
		if err := c.backend.RecordSample(&sample); err != nil {
			c.log.Error().Err(err).Msg("Error recording sample")
		}
	}

	c.snapshot.Store(&core.SessionSnapshot{
		Timestamp:   sample.Timestamp,
		Position:    sample.Position,
		Orientation: sample.Orientation,
		Valid:       sample.Valid,
		Simulated:   simulated,
		FPS:         c.fps(),
		SampleCount: c.raw.Len(),
	})
}

// fallbackSample substitutes a pose on the simulated path when the source
// fails. Its timestamp continues one tick past the last observed stamp, not
// from the simulator's own epoch, so buffer timestamps stay monotonic across
// a transient device failure.
func (c *Controller) fallbackSample() core.PoseSample {
	c.mu.Lock()
	ts := time.Since(c.start).Seconds()
	if c.haveStamp {
		ts = c.lastStamp + c.cfg.TickInterval.Seconds()
	}
	c.mu.Unlock()

	sample := source.PoseAt(ts)
	sample.Valid = false
	return sample
}

// fps is 1 over the mean of the recent frame intervals, zero until any
// interval has been recorded.
func (c *Controller) fps() float64 {
	intervals := c.frames.Snapshot()
	if len(intervals) == 0 {
		return 0
	}
	mean := stat.Mean(intervals, nil)
	if mean <= 0 {
		return 0
	}
	return 1 / mean
}
