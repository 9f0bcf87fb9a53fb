package export

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/hmdlab/headtrack/pkg/core"
)

type axisStats struct {
	mean core.Vec3
	rng  core.Vec3
	std  core.Vec3
}

// positionStats computes per-axis mean, range and population standard
// deviation over the full sample slice.
func positionStats(samples []core.PoseSample) axisStats {
	n := len(samples)
	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i, s := range samples {
		xs[i] = s.Position.X
		ys[i] = s.Position.Y
		zs[i] = s.Position.Z
	}

	return axisStats{
		mean: core.Vec3{
			X: stat.Mean(xs, nil),
			Y: stat.Mean(ys, nil),
			Z: stat.Mean(zs, nil),
		},
		rng: core.Vec3{
			X: floats.Max(xs) - floats.Min(xs),
			Y: floats.Max(ys) - floats.Min(ys),
			Z: floats.Max(zs) - floats.Min(zs),
		},
		std: core.Vec3{
			X: stat.PopStdDev(xs, nil),
			Y: stat.PopStdDev(ys, nil),
			Z: stat.PopStdDev(zs, nil),
		},
	}
}
