// Package projection maps tracking-space coordinates into 2D screen-space
// for the visualization collaborator. Everything here is a pure function of
// its inputs; there is no hidden state.
package projection

import (
	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/hmdlab/headtrack/pkg/core"
)

// DefaultScale is the reference projection scale, pixels per meter.
const DefaultScale = 100.0

// TrailLength is how many of the most recent positions the trail includes.
const TrailLength = 50

// Params fixes the screen mapping: center pixel and scale. Screen Y grows
// downward while tracking-space Y grows upward, so Y is inverted.
type Params struct {
	CenterX float64
	CenterY float64
	Scale   float64
}

// Point is a projected screen-space coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is a screen-space rectangle (top-left origin).
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Project maps one tracking-space position onto the screen. The tracking
// origin always lands on the screen center.
func (p Params) Project(pos core.Vec3) Point {
	return Point{
		X: p.CenterX + pos.X*p.Scale,
		Y: p.CenterY - pos.Y*p.Scale,
	}
}

// Trail projects the last up-to-TrailLength positions from the trail buffer
// snapshot, oldest first. It is recomputed from the live buffer each frame,
// never cached.
func (p Params) Trail(positions []core.Vec3) []Point {
	if len(positions) > TrailLength {
		positions = positions[len(positions)-TrailLength:]
	}
	out := make([]Point, len(positions))
	for i, pos := range positions {
		out[i] = p.Project(pos)
	}
	return out
}

// TrailLine returns the projected trail as a LineString for overlay
// rendering. An empty LineString is returned when fewer than two positions
// exist.
func (p Params) TrailLine(positions []core.Vec3) geom.LineString {
	pts := p.Trail(positions)
	if len(pts) < 2 {
		return geom.LineString{}
	}
	flat := make([]float64, 0, len(pts)*2)
	for _, pt := range pts {
		flat = append(flat, pt.X, pt.Y)
	}
	ls, err := geom.NewLineString(geom.NewSequence(flat, geom.DimXY))
	if err != nil {
		return geom.LineString{}
	}
	return ls
}

// BoundsRect projects the tracking volume's X/Y extent into a screen
// rectangle using the same mapping as positions. YMax projects to the top
// edge because of the Y inversion.
func (p Params) BoundsRect(b core.TrackingBounds) Rect {
	topLeft := p.Project(core.Vec3{X: b.XMin, Y: b.YMax})
	return Rect{
		X: topLeft.X,
		Y: topLeft.Y,
		W: (b.XMax - b.XMin) * p.Scale,
		H: (b.YMax - b.YMin) * p.Scale,
	}
}
