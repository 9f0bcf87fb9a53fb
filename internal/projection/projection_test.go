package projection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hmdlab/headtrack/pkg/core"
)

func TestProject_OriginLandsOnCenter(t *testing.T) {
	for _, p := range []Params{
		{CenterX: 400, CenterY: 300, Scale: 100},
		{CenterX: 0, CenterY: 0, Scale: 100},
		{CenterX: 1920, CenterY: 17.5, Scale: 42},
	} {
		pt := p.Project(core.Vec3{})
		assert.Equal(t, p.CenterX, pt.X)
		assert.Equal(t, p.CenterY, pt.Y)
	}
}

func TestProject_YInverted(t *testing.T) {
	p := Params{CenterX: 400, CenterY: 300, Scale: 100}

	pt := p.Project(core.Vec3{X: 1, Y: 1, Z: 1.5})
	assert.Equal(t, 500.0, pt.X)
	assert.Equal(t, 200.0, pt.Y) // +Y in tracking-space goes up the screen
}

func TestProject_Deterministic(t *testing.T) {
	p := Params{CenterX: 400, CenterY: 300, Scale: 100}
	pos := core.Vec3{X: -0.35, Y: 0.71, Z: 2.0}

	a := p.Project(pos)
	b := p.Project(pos)
	assert.Equal(t, a, b)
}

func TestTrail_BoundedToLast50(t *testing.T) {
	p := Params{CenterX: 400, CenterY: 300, Scale: 100}

	positions := make([]core.Vec3, 80)
	for i := range positions {
		positions[i] = core.Vec3{X: float64(i)}
	}

	trail := p.Trail(positions)
	require.Len(t, trail, TrailLength)

	// Oldest retained position is index 30.
	assert.Equal(t, p.Project(positions[30]), trail[0])
	assert.Equal(t, p.Project(positions[79]), trail[len(trail)-1])
}

func TestTrail_ShortInput(t *testing.T) {
	p := Params{CenterX: 400, CenterY: 300, Scale: 100}
	trail := p.Trail([]core.Vec3{{X: 0.1}})
	require.Len(t, trail, 1)
}

func TestTrailLine_Geometry(t *testing.T) {
	p := Params{CenterX: 400, CenterY: 300, Scale: 100}

	ls := p.TrailLine([]core.Vec3{{X: 0}, {X: 0.5}, {X: 1}})
	seq := ls.Coordinates()
	require.Equal(t, 3, seq.Length())
	assert.Equal(t, 400.0, seq.GetXY(0).X)
	assert.Equal(t, 500.0, seq.GetXY(2).X)

	// Fewer than two points yields an empty line.
	empty := p.TrailLine([]core.Vec3{{X: 1}})
	assert.Equal(t, 0, empty.Coordinates().Length())
}

func TestBoundsRect(t *testing.T) {
	p := Params{CenterX: 400, CenterY: 300, Scale: 100}
	b := core.TrackingBounds{XMin: -2, XMax: 2, YMin: -1.5, YMax: 1.5, ZMin: 0.5, ZMax: 3}

	r := p.BoundsRect(b)
	assert.Equal(t, 200.0, r.X) // 400 + (-2 * 100)
	assert.Equal(t, 150.0, r.Y) // 300 - (1.5 * 100)
	assert.Equal(t, 400.0, r.W)
	assert.Equal(t, 300.0, r.H)
}
