package geometry

import (
	"image"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtentRound(t *testing.T) {
	e := NewExtent(Point2D{X: 9.6, Y: -0.4}, 10, 10)
	assert.Equal(t, image.Rect(10, 0, 20, 10), e.Round())
	assert.InDelta(t, 10.0, e.Width(), 1e-12)
	assert.InDelta(t, 10.0, e.Height(), 1e-12)
}

func TestBoundingExtent(t *testing.T) {
	got := BoundingExtent([]Extent{
		NewExtent(Point2D{X: 0, Y: 5}, 10, 10),
		NewExtent(Point2D{X: -3, Y: 0}, 10, 10),
	})
	assert.Equal(t, Extent{Left: -3, Right: 10, Bottom: 15, Top: 0}, got)
	assert.Equal(t, Extent{}, BoundingExtent(nil))
}

func TestSimilarityRoundTrip(t *testing.T) {
	tr := Similarity(math.Pi/6, 1.5, 3, -2)
	assert.InDelta(t, 1.5, tr.Scale(), 1e-12)
	assert.InDelta(t, math.Pi/6, tr.Angle(), 1e-12)

	p := tr.Apply(Point2D{X: 0, Y: 0})
	assert.Equal(t, Point2D{X: 3, Y: -2}, p)
}

func TestPointDistance(t *testing.T) {
	assert.InDelta(t, 5.0, Point2D{X: 0, Y: 0}.Distance(Point2D{X: 3, Y: 4}), 1e-12)
	assert.Equal(t, Point2D{X: 1, Y: 1}, Point2D{X: 3, Y: 4}.Sub(Point2D{X: 2, Y: 3}))
}
