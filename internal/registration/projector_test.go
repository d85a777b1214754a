package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gridstitch/internal/grid"
	"gridstitch/internal/match"
	"gridstitch/pkg/geometry"
)

func TestExtents(t *testing.T) {
	ext := Extents([]float64{0, 0, 12.5, -3}, 10, 8)
	assert.Equal(t, []geometry.Extent{
		{Left: 0, Right: 10, Bottom: 8, Top: 0},
		{Left: 12.5, Right: 22.5, Bottom: 5, Top: -3},
	}, ext)
}

func TestProjectAndTotalDistance(t *testing.T) {
	cs := []match.Correspondence{{
		Edge:    grid.Edge{I: 0, J: 1, Orientation: grid.Horizontal},
		PointsI: []geometry.Point2D{p(8, 2), p(9, 5)},
		PointsJ: []geometry.Point2D{p(1, 2), p(2, 5)},
	}}
	x := []float64{0, 0, 10, 4}

	pairs := Project(cs, x)
	assert.Equal(t, []geometry.Point2D{p(8, 2), p(9, 5)}, pairs[0].PointsI)
	assert.Equal(t, []geometry.Point2D{p(11, 6), p(12, 9)}, pairs[0].PointsJ)

	// each pair is off by (3, 4)
	assert.InDelta(t, 10.0, TotalDistance(cs, x), 1e-12)
	assert.InDelta(t, 0.0, TotalDistance(cs, []float64{0, 0, 7, 0}), 1e-12)
	assert.Zero(t, TotalDistance(nil, x))
}

func TestToCanvasAppends(t *testing.T) {
	dst := []geometry.Point2D{p(-1, -1)}
	dst = ToCanvas(dst, []geometry.Point2D{p(1, 1)}, p(10, 20))
	assert.Equal(t, []geometry.Point2D{p(-1, -1), p(11, 21)}, dst)
}
