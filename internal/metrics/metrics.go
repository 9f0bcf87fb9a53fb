// Package metrics derives accuracy and stability figures from buffered pose
// samples. Every computation is a fresh O(window) reduction over a snapshot;
// nothing is maintained incrementally, so callers decide how often to pay for
// a recompute.
package metrics

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/hmdlab/headtrack/pkg/core"
)

// ErrInsufficientData is returned when fewer samples are buffered than the
// window requires. Callers must surface it, not degrade to a partial result.
var ErrInsufficientData = errors.New("not enough tracking samples for analysis")

// DefaultWindow is the number of most-recent samples dispersion statistics
// are computed over.
const DefaultWindow = 100

// Engine computes MetricsSnapshots over sample windows.
type Engine struct {
	window int
}

// New creates an engine with the given window size; non-positive values fall
// back to DefaultWindow.
func New(window int) *Engine {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Engine{window: window}
}

// Window returns the configured window size.
func (e *Engine) Window() int { return e.window }

// Compute reduces the full session buffer into a MetricsSnapshot.
//
// Jitter, mean, range and standard deviation are computed over the last
// `window` samples. Drift rate intentionally spans the entire buffer: net
// displacement between the very first and very last sample divided by the
// elapsed time between them, 0 when elapsed time is 0 or fewer than two
// samples exist.
//
// Accuracy against ground truth needs a completed calibration and is reported
// as unavailable here rather than fabricated.
func (e *Engine) Compute(samples []core.PoseSample) (core.MetricsSnapshot, error) {
	if len(samples) < e.window {
		return core.MetricsSnapshot{}, ErrInsufficientData
	}

	window := samples[len(samples)-e.window:]

	xs := make([]float64, len(window))
	ys := make([]float64, len(window))
	zs := make([]float64, len(window))
	for i, s := range window {
		xs[i] = s.Position.X
		ys[i] = s.Position.Y
		zs[i] = s.Position.Z
	}

	mean := core.Vec3{
		X: stat.Mean(xs, nil),
		Y: stat.Mean(ys, nil),
		Z: stat.Mean(zs, nil),
	}

	// RMS distance from the window mean: dispersion only, translation of the
	// whole window cancels out.
	var sumSq float64
	for _, s := range window {
		d := s.Position.Sub(mean)
		sumSq += d.X*d.X + d.Y*d.Y + d.Z*d.Z
	}
	jitter := math.Sqrt(sumSq / float64(len(window)))

	snap := core.MetricsSnapshot{
		Jitter:       jitter,
		DriftRate:    DriftRate(samples),
		MeanPosition: mean,
		PositionRange: core.Vec3{
			X: floats.Max(xs) - floats.Min(xs),
			Y: floats.Max(ys) - floats.Min(ys),
			Z: floats.Max(zs) - floats.Min(zs),
		},
		PositionStdDev: core.Vec3{
			X: stat.PopStdDev(xs, nil),
			Y: stat.PopStdDev(ys, nil),
			Z: stat.PopStdDev(zs, nil),
		},
		WindowSize:        len(window),
		AccuracyAvailable: false,
	}
	return snap, nil
}

// DriftRate returns net displacement between the first and last sample
// divided by elapsed time, in meters/second. Zero when fewer than two samples
// exist or no time elapsed between them.
func DriftRate(samples []core.PoseSample) float64 {
	if len(samples) < 2 {
		return 0
	}
	first := samples[0]
	last := samples[len(samples)-1]
	elapsed := last.Timestamp - first.Timestamp
	if elapsed <= 0 {
		return 0
	}
	return last.Position.DistanceTo(first.Position) / elapsed
}
