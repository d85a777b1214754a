package grid

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridstitch/pkg/geometry"
)

func gray(w, h int) image.Image {
	return image.NewGray(image.Rect(0, 0, w, h))
}

func TestInitialOrigins(t *testing.T) {
	x0 := InitialOrigins(2, 2, 100, 50, DefaultMargin)
	assert.Equal(t, []float64{0, 0, 120, 0, 0, 70, 120, 70}, x0)
}

func TestNew(t *testing.T) {
	imgs := []image.Image{gray(10, 8), gray(10, 8), gray(10, 8)}
	g, err := New(1, 3, imgs, []string{"a", "b", "c"}, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, g.TileWidth)
	assert.Equal(t, 8, g.TileHeight)
	assert.Equal(t, geometry.Point2D{X: 30, Y: 0}, g.Tiles[2].Origin)
	assert.Equal(t, []string{"a", "b", "c"}, g.Names())

	r, c := g.RowCol(2)
	assert.Equal(t, 0, r)
	assert.Equal(t, 2, c)

	require.NoError(t, g.SetOrigins([]float64{1, 2, 3, 4, 5, 6}))
	assert.Equal(t, []float64{1, 2, 3, 4, 5, 6}, g.Origins())
	assert.Error(t, g.SetOrigins([]float64{1}))
}

func TestNewRejectsBadInput(t *testing.T) {
	_, err := New(2, 2, []image.Image{gray(4, 4)}, nil, 0)
	assert.Error(t, err)

	_, err = New(1, 2, []image.Image{gray(4, 4), gray(5, 4)}, nil, 0)
	assert.ErrorContains(t, err, "tile 1")

	_, err = New(0, 2, nil, nil, 0)
	assert.ErrorIs(t, err, ErrInvalidDimensions)
}
