package mosaic

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridstitch/pkg/geometry"
)

// patterned returns a w x h gray tile whose pixel (x, y) is seed+x+w*y.
func patterned(w, h int, seed uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: seed + uint8(x+w*y)})
		}
	}
	return img
}

func solid(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func extentsAt(w, h float64, origins ...geometry.Point2D) []geometry.Extent {
	out := make([]geometry.Extent, len(origins))
	for i, o := range origins {
		out[i] = geometry.NewExtent(o, w, h)
	}
	return out
}

func TestCompositePlacement(t *testing.T) {
	a := patterned(10, 10, 0)
	b := patterned(10, 10, 100)
	m, err := Composite([]image.Image{a, b}, extentsAt(10, 10, geometry.Point2D{}, geometry.Point2D{X: 10}))
	require.NoError(t, err)

	out, ok := m.Image.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, 20, out.Bounds().Dx())
	assert.Equal(t, 10, out.Bounds().Dy())

	for y := 0; y < 10; y++ {
		for x := 0; x < 20; x++ {
			want := a.GrayAt(x, y)
			if x >= 10 {
				want = b.GrayAt(x-10, y)
			}
			require.Equal(t, want, out.GrayAt(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

func TestCompositeLastWriteWins(t *testing.T) {
	dark := solid(10, 10, 10)
	light := solid(10, 10, 240)

	// the second tile starts on the last row of the first
	m, err := Composite([]image.Image{dark, light}, extentsAt(10, 10, geometry.Point2D{}, geometry.Point2D{Y: 9}))
	require.NoError(t, err)
	out := m.Image.(*image.Gray)
	assert.Equal(t, image.Rect(0, 0, 10, 19), out.Bounds())
	for x := 0; x < 10; x++ {
		assert.Equal(t, uint8(10), out.GrayAt(x, 8).Y)
		assert.Equal(t, uint8(240), out.GrayAt(x, 9).Y)
	}

	// reversed order: the dark tile is drawn last and wins the shared row
	m, err = Composite([]image.Image{light, dark}, extentsAt(10, 10, geometry.Point2D{Y: 9}, geometry.Point2D{}))
	require.NoError(t, err)
	assert.Equal(t, uint8(10), m.Image.(*image.Gray).GrayAt(0, 9).Y)
}

func TestCompositeRoundsAndShifts(t *testing.T) {
	tiles := []image.Image{solid(4, 4, 1), solid(4, 4, 2)}
	m, err := Composite(tiles, extentsAt(4, 4,
		geometry.Point2D{X: -5.4, Y: 3.6},
		geometry.Point2D{X: -1.6, Y: 2.2},
	))
	require.NoError(t, err)

	assert.Equal(t, image.Pt(-5, 2), m.Offset)
	assert.Equal(t, []image.Rectangle{image.Rect(0, 2, 4, 6), image.Rect(3, 0, 7, 4)}, m.Placements)
	assert.Equal(t, image.Rect(0, 0, 7, 6), m.Image.Bounds())
	// uncovered pixels stay zero
	assert.Equal(t, uint8(0), m.Image.(*image.Gray).GrayAt(6, 5).Y)
}

func TestCompositeChannelMismatch(t *testing.T) {
	tiles := []image.Image{solid(4, 4, 1), image.NewRGBA(image.Rect(0, 0, 4, 4))}
	_, err := Composite(tiles, extentsAt(4, 4, geometry.Point2D{}, geometry.Point2D{X: 4}))
	var cm *ChannelMismatchError
	require.ErrorAs(t, err, &cm)
	assert.Equal(t, 1, cm.Tile)
	assert.Equal(t, 1, cm.Want.Channels)
	assert.Equal(t, 4, cm.Got.Channels)

	tiles = []image.Image{solid(4, 4, 1), image.NewGray16(image.Rect(0, 0, 4, 4))}
	_, err = Composite(tiles, extentsAt(4, 4, geometry.Point2D{}, geometry.Point2D{X: 4}))
	require.ErrorAs(t, err, &cm)
	assert.Equal(t, Uint16, cm.Got.Sample)
}

func TestCompositeErrors(t *testing.T) {
	_, err := Composite(nil, nil)
	assert.ErrorIs(t, err, ErrNoTiles)

	_, err = Composite([]image.Image{solid(2, 2, 0)}, nil)
	assert.Error(t, err)

	pal := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.Black})
	_, err = Composite([]image.Image{pal}, extentsAt(2, 2, geometry.Point2D{}))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestCompositeKeepsColorFormat(t *testing.T) {
	a := image.NewNRGBA64(image.Rect(0, 0, 3, 3))
	a.SetNRGBA64(1, 1, color.NRGBA64{R: 65535, A: 65535})
	b := image.NewNRGBA64(image.Rect(0, 0, 3, 3))
	m, err := Composite([]image.Image{a, b}, extentsAt(3, 3, geometry.Point2D{}, geometry.Point2D{X: 3}))
	require.NoError(t, err)
	out, ok := m.Image.(*image.NRGBA64)
	require.True(t, ok)
	assert.Equal(t, color.NRGBA64{R: 65535, A: 65535}, out.NRGBA64At(1, 1))
}
