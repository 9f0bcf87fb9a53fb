package session

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmdlab/headtrack/internal/calibration"
	"github.com/hmdlab/headtrack/internal/config"
	"github.com/hmdlab/headtrack/internal/metrics"
	"github.com/hmdlab/headtrack/internal/source"
	"github.com/hmdlab/headtrack/pkg/core"
)

// scriptedSource replays a fixed sample sequence, then repeats the last one.
type scriptedSource struct {
	mu         sync.Mutex
	samples    []core.PoseSample
	idx        int
	fail       bool
	recentered bool
}

func (s *scriptedSource) ReadPose() (core.PoseSample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fail {
		return core.PoseSample{}, source.ErrSourceUnavailable
	}
	sample := s.samples[s.idx]
	if s.idx < len(s.samples)-1 {
		s.idx++
	}
	return sample, nil
}

func (s *scriptedSource) Recenter() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recentered = true
	return nil
}

func (s *scriptedSource) Close() error { return nil }

// recordingBackend captures storage calls for assertions.
type recordingBackend struct {
	mu       sync.Mutex
	started  int
	ended    int
	samples  []core.PoseSample
	lastInfo core.SessionInfo
}

func (b *recordingBackend) Init() error  { return nil }
func (b *recordingBackend) Close() error { return nil }

func (b *recordingBackend) StartSession(info *core.SessionInfo, bounds core.TrackingBounds) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started++
	b.lastInfo = *info
	return nil
}

func (b *recordingBackend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.ended++
	return nil
}

func (b *recordingBackend) RecordSample(s *core.PoseSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = append(b.samples, *s)
	return nil
}

func (b *recordingBackend) SaveCalibration(r *core.CalibrationRecord) error { return nil }

func rampSamples(n int, dt float64) []core.PoseSample {
	samples := make([]core.PoseSample, n)
	for i := range samples {
		samples[i] = core.PoseSample{
			Timestamp:   float64(i) * dt,
			Position:    core.Vec3{X: 0.001 * float64(i), Z: 1.5},
			Orientation: core.Quat{W: 1},
			Valid:       true,
		}
	}
	return samples
}

func newTestController(t *testing.T, src source.PoseSource, backend *recordingBackend) *Controller {
	t.Helper()

	cfg := config.SessionConfig{
		// Keep the loop from ticking on its own so tests drive tick directly.
		TickInterval: time.Hour,
		RawBuffer:    1000,
		TrailBuffer:  100,
		FrameBuffer:  60,
		Source:       "sim",
		Tag:          "Test Session",
	}

	seq := calibration.NewSequencer(calibration.DefaultConfig())
	engine := metrics.New(metrics.DefaultWindow)

	var c *Controller
	var err error
	if backend != nil {
		c, err = New(cfg, zerolog.Nop(), src, seq, engine, backend, core.DefaultBounds())
	} else {
		c, err = New(cfg, zerolog.Nop(), src, seq, engine, nil, core.DefaultBounds())
	}
	require.NoError(t, err)
	return c
}

func TestController_StartStop(t *testing.T) {
	backend := &recordingBackend{}
	c := newTestController(t, &scriptedSource{samples: rampSamples(10, 0.016)}, backend)

	require.NoError(t, c.Start())
	assert.True(t, c.Running())
	assert.ErrorIs(t, c.Start(), ErrAlreadyRunning)

	require.NoError(t, c.Stop())
	assert.False(t, c.Running())

	// Stopping again is a no-op.
	require.NoError(t, c.Stop())

	assert.Equal(t, 1, backend.started)
	assert.Equal(t, 1, backend.ended)
	assert.Equal(t, "Test Session", backend.lastInfo.Tag)
	assert.Equal(t, "sim", backend.lastInfo.Source)
}

func TestController_TickFanOut(t *testing.T) {
	backend := &recordingBackend{}
	src := &scriptedSource{samples: rampSamples(5, 0.016)}
	c := newTestController(t, src, backend)
	require.NoError(t, c.Start())
	defer c.Stop()

	c.tick()
	c.tick()

	samples := c.Samples()
	require.Len(t, samples, 2)
	assert.Equal(t, 0.016, samples[1].Timestamp)

	trail := c.Trail()
	require.Len(t, trail, 2)
	assert.Equal(t, samples[1].Position, trail[1])

	orients := c.OrientationTrail()
	require.Len(t, orients, 2)
	assert.Equal(t, samples[1].Orientation, orients[1])

	require.Len(t, backend.samples, 2)
	assert.Equal(t, samples[0], backend.samples[0])

	snap := c.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 0.016, snap.Timestamp)
	assert.True(t, snap.Valid)
	assert.False(t, snap.Simulated)
	assert.Equal(t, 2, snap.SampleCount)
}

func TestController_NoSnapshotBeforeFirstTick(t *testing.T) {
	c := newTestController(t, &scriptedSource{samples: rampSamples(2, 0.016)}, nil)
	assert.Nil(t, c.Snapshot())
}

func TestController_SourceFailureSubstitutes(t *testing.T) {
	src := &scriptedSource{fail: true, samples: rampSamples(1, 0.016)}
	c := newTestController(t, src, nil)
	require.NoError(t, c.Start())
	defer c.Stop()

	c.tick()

	snap := c.Snapshot()
	require.NotNil(t, snap)
	assert.True(t, snap.Simulated)
	assert.False(t, snap.Valid)

	// The substituted sample still lands in the history, flagged invalid.
	samples := c.Samples()
	require.Len(t, samples, 1)
	assert.False(t, samples[0].Valid)
}

func TestController_SubstituteKeepsTimestampsMonotonic(t *testing.T) {
	// A device source with its own epoch delivers one sample, then fails.
	src := &scriptedSource{samples: []core.PoseSample{{
		Timestamp:   1000.0,
		Position:    core.Vec3{Z: 1.5},
		Orientation: core.Quat{W: 1},
		Valid:       true,
	}}}
	c := newTestController(t, src, nil)
	require.NoError(t, c.Start())
	defer c.Stop()

	c.tick()

	src.mu.Lock()
	src.fail = true
	src.mu.Unlock()

	c.tick()
	c.tick()

	samples := c.Samples()
	require.Len(t, samples, 3)
	assert.Equal(t, 1000.0, samples[0].Timestamp)

	// Substituted samples continue one tick past the last real stamp instead
	// of restarting from the loop's own epoch.
	step := c.cfg.TickInterval.Seconds()
	assert.Equal(t, 1000.0+step, samples[1].Timestamp)
	assert.Equal(t, 1000.0+2*step, samples[2].Timestamp)
	for i := 1; i < len(samples); i++ {
		assert.Greater(t, samples[i].Timestamp, samples[i-1].Timestamp)
		assert.False(t, samples[i].Valid)
	}
}

func TestController_ApplyCalibration(t *testing.T) {
	c := newTestController(t, &scriptedSource{samples: rampSamples(2, 0.016)}, nil)
	assert.Nil(t, c.ActiveCalibration())

	first := &core.CalibrationRecord{
		Timestamp: "2026-08-27T10:00:00Z",
		Bounds:    core.TrackingBounds{XMin: -1, XMax: 1, YMin: -1, YMax: 1, ZMin: 0.5, ZMax: 2},
	}
	c.ApplyCalibration(first)
	require.Equal(t, first, c.ActiveCalibration())
	assert.Equal(t, first.Bounds, c.Bounds())

	// A later apply fully supersedes the previous record and its bounds.
	second := &core.CalibrationRecord{
		Timestamp: "2026-08-27T11:00:00Z",
		Bounds:    core.DefaultBounds(),
	}
	c.ApplyCalibration(second)
	require.Equal(t, second, c.ActiveCalibration())
	assert.Equal(t, core.DefaultBounds(), c.Bounds())
}

func TestController_FPS(t *testing.T) {
	src := &scriptedSource{samples: rampSamples(20, 0.016)}
	c := newTestController(t, src, nil)
	require.NoError(t, c.Start())
	defer c.Stop()

	c.tick()
	snap := c.Snapshot()
	require.NotNil(t, snap)
	assert.Zero(t, snap.FPS, "no intervals yet")

	for i := 0; i < 10; i++ {
		c.tick()
	}
	snap = c.Snapshot()
	assert.InDelta(t, 62.5, snap.FPS, 0.01)
}

func TestController_Reset(t *testing.T) {
	src := &scriptedSource{samples: rampSamples(10, 0.016)}
	c := newTestController(t, src, nil)
	require.NoError(t, c.Start())
	defer c.Stop()

	for i := 0; i < 5; i++ {
		c.tick()
	}
	require.NotEmpty(t, c.Samples())

	c.Reset()
	assert.Empty(t, c.Samples())
	assert.Empty(t, c.Trail())
	assert.Empty(t, c.OrientationTrail())
	assert.Nil(t, c.Snapshot())

	// The loop refills after a reset, and the first post-reset tick records
	// no frame interval.
	c.tick()
	snap := c.Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, 1, snap.SampleCount)
	assert.Zero(t, snap.FPS)
}

func TestController_Recenter(t *testing.T) {
	src := &scriptedSource{samples: rampSamples(2, 0.016)}
	c := newTestController(t, src, nil)

	require.NoError(t, c.Recenter())
	assert.True(t, src.recentered)
}

func TestController_Bounds(t *testing.T) {
	c := newTestController(t, &scriptedSource{samples: rampSamples(2, 0.016)}, nil)
	assert.Equal(t, core.DefaultBounds(), c.Bounds())

	custom := core.TrackingBounds{XMin: -1, XMax: 1, YMin: -1, YMax: 1, ZMin: 0.5, ZMax: 2}
	c.SetBounds(custom)
	assert.Equal(t, custom, c.Bounds())
}

func TestController_RawBufferBounded(t *testing.T) {
	cfg := config.SessionConfig{
		TickInterval: time.Hour,
		RawBuffer:    50,
		TrailBuffer:  10,
		FrameBuffer:  10,
		Source:       "sim",
		Tag:          "Bounded",
	}
	seq := calibration.NewSequencer(calibration.DefaultConfig())
	c, err := New(cfg, zerolog.Nop(), &scriptedSource{samples: rampSamples(200, 0.016)},
		seq, metrics.New(metrics.DefaultWindow), nil, core.DefaultBounds())
	require.NoError(t, err)
	require.NoError(t, c.Start())
	defer c.Stop()

	for i := 0; i < 200; i++ {
		c.tick()
	}

	samples := c.Samples()
	assert.Len(t, samples, 50)
	// Oldest samples were evicted.
	assert.Equal(t, float64(150)*0.016, samples[0].Timestamp)
	assert.Len(t, c.Trail(), 10)
}

func TestController_FeedsCalibration(t *testing.T) {
	// Samples sit on the first calibration target long enough to dwell.
	target := calibration.DefaultTargets()[0].Target
	samples := make([]core.PoseSample, 40)
	for i := range samples {
		samples[i] = core.PoseSample{
			Timestamp:   float64(i) * 0.1,
			Position:    target,
			Orientation: core.Quat{W: 1},
			Valid:       true,
		}
	}

	c := newTestController(t, &scriptedSource{samples: samples}, nil)
	require.NoError(t, c.Start())
	defer c.Stop()

	require.NoError(t, c.Calibration().Start())
	for i := 0; i < 40; i++ {
		c.tick()
	}

	progress := c.Calibration().Progress()
	assert.Equal(t, calibration.Running, progress.State)
	assert.Equal(t, 1, progress.Index, "first target should be accepted after the dwell")
}

func TestController_Metrics(t *testing.T) {
	src := &scriptedSource{samples: rampSamples(150, 0.016)}
	c := newTestController(t, src, nil)
	require.NoError(t, c.Start())
	defer c.Stop()

	_, err := c.Metrics()
	assert.ErrorIs(t, err, metrics.ErrInsufficientData)

	for i := 0; i < 150; i++ {
		c.tick()
	}

	snap, err := c.Metrics()
	require.NoError(t, err)
	assert.Equal(t, metrics.DefaultWindow, snap.WindowSize)
	assert.False(t, snap.AccuracyAvailable)
}
