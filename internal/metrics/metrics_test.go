package metrics

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmdlab/headtrack/pkg/core"
)

func samplesAt(positions []core.Vec3, dt float64) []core.PoseSample {
	out := make([]core.PoseSample, len(positions))
	for i, p := range positions {
		out[i] = core.PoseSample{
			Timestamp: float64(i) * dt,
			Position:  p,
			Valid:     true,
		}
	}
	return out
}

func TestCompute_InsufficientData(t *testing.T) {
	e := New(100)

	positions := make([]core.Vec3, 99)
	_, err := e.Compute(samplesAt(positions, 0.016))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))

	// Succeeds at exactly the window size.
	positions = make([]core.Vec3, 100)
	snap, err := e.Compute(samplesAt(positions, 0.016))
	require.NoError(t, err)
	assert.Equal(t, 100, snap.WindowSize)
}

func TestCompute_JitterZeroWhenStationary(t *testing.T) {
	e := New(100)

	positions := make([]core.Vec3, 100)
	for i := range positions {
		positions[i] = core.Vec3{X: 0.3, Y: -0.1, Z: 1.7}
	}

	snap, err := e.Compute(samplesAt(positions, 0.016))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, snap.Jitter, 1e-12)
	assert.InDelta(t, 0.3, snap.MeanPosition.X, 1e-12)
	assert.InDelta(t, 0.0, snap.PositionRange.X, 1e-12)
	assert.InDelta(t, 0.0, snap.PositionStdDev.Z, 1e-12)
}

func TestCompute_JitterTranslationInvariant(t *testing.T) {
	e := New(100)

	rng := rand.New(rand.NewSource(42))
	positions := make([]core.Vec3, 100)
	for i := range positions {
		positions[i] = core.Vec3{
			X: rng.NormFloat64() * 0.01,
			Y: rng.NormFloat64() * 0.01,
			Z: 1.5 + rng.NormFloat64()*0.01,
		}
	}

	base, err := e.Compute(samplesAt(positions, 0.016))
	require.NoError(t, err)
	require.Greater(t, base.Jitter, 0.0)

	offset := core.Vec3{X: 12.5, Y: -3.25, Z: 100}
	shifted := make([]core.Vec3, len(positions))
	for i, p := range positions {
		shifted[i] = p.Add(offset)
	}

	moved, err := e.Compute(samplesAt(shifted, 0.016))
	require.NoError(t, err)
	assert.InDelta(t, base.Jitter, moved.Jitter, 1e-9)
}

func TestDriftRate_TwoSamples(t *testing.T) {
	// (0,0,0) -> (1,0,0) over exactly 2 seconds must be 0.5 m/s.
	samples := []core.PoseSample{
		{Timestamp: 0, Position: core.Vec3{}},
		{Timestamp: 2, Position: core.Vec3{X: 1}},
	}
	assert.InDelta(t, 0.5, DriftRate(samples), 1e-12)
}

func TestDriftRate_Degenerate(t *testing.T) {
	assert.Equal(t, 0.0, DriftRate(nil))
	assert.Equal(t, 0.0, DriftRate([]core.PoseSample{{Timestamp: 1}}))

	// Same timestamp on both ends: elapsed time is 0.
	samples := []core.PoseSample{
		{Timestamp: 5, Position: core.Vec3{}},
		{Timestamp: 5, Position: core.Vec3{X: 3}},
	}
	assert.Equal(t, 0.0, DriftRate(samples))
}

func TestCompute_DriftSpansWholeBuffer(t *testing.T) {
	e := New(100)

	// 200 samples drifting along X at 0.1 m/s; the jitter window only sees
	// the last 100, but drift must use the full span.
	samples := make([]core.PoseSample, 200)
	for i := range samples {
		ts := float64(i) * 0.1
		samples[i] = core.PoseSample{
			Timestamp: ts,
			Position:  core.Vec3{X: ts * 0.1},
			Valid:     true,
		}
	}

	snap, err := e.Compute(samples)
	require.NoError(t, err)
	assert.InDelta(t, 0.1, snap.DriftRate, 1e-9)
}

func TestCompute_AccuracyUnavailableWithoutCalibration(t *testing.T) {
	e := New(10)
	positions := make([]core.Vec3, 10)
	snap, err := e.Compute(samplesAt(positions, 0.016))
	require.NoError(t, err)
	assert.False(t, snap.AccuracyAvailable)
}
