package mosaic

import (
	"fmt"
	"image"
	"image/draw"

	xdraw "golang.org/x/image/draw"

	"gridstitch/pkg/geometry"
)

// Mosaic is the composited output raster.
type Mosaic struct {
	Image draw.Image
	// Placements are the tile rectangles in output pixel coordinates, in tile order.
	Placements []image.Rectangle
	// Offset is the canvas position of the output's (0,0) pixel.
	Offset image.Point
}

// Placements rounds tile extents to integer pixels and shifts them so the
// smallest left and top land on (0,0). Each rectangle keeps the tile size.
func Placements(extents []geometry.Extent, tileW, tileH int) ([]image.Rectangle, image.Point) {
	rects := make([]image.Rectangle, len(extents))
	if len(extents) == 0 {
		return rects, image.Point{}
	}
	for i, e := range extents {
		tl := e.Round().Min
		rects[i] = image.Rectangle{Min: tl, Max: tl.Add(image.Pt(tileW, tileH))}
	}

	offset := rects[0].Min
	for _, r := range rects[1:] {
		offset.X = min(offset.X, r.Min.X)
		offset.Y = min(offset.Y, r.Min.Y)
	}
	for i := range rects {
		rects[i] = rects[i].Sub(offset)
	}
	return rects, offset
}

// Composite blits every tile at its extent onto one canvas sized to the
// union of all placements. Tiles are drawn in order, so where they overlap
// the later tile wins. All tiles must share one format.
func Composite(tiles []image.Image, extents []geometry.Extent) (*Mosaic, error) {
	if len(tiles) == 0 {
		return nil, ErrNoTiles
	}
	if len(tiles) != len(extents) {
		return nil, fmt.Errorf("got %d extents for %d tiles", len(extents), len(tiles))
	}

	want, err := FormatOf(tiles[0])
	if err != nil {
		return nil, fmt.Errorf("tile 0: %w", err)
	}
	for i, t := range tiles[1:] {
		got, err := FormatOf(t)
		if err != nil {
			return nil, fmt.Errorf("tile %d: %w", i+1, err)
		}
		if got != want {
			return nil, &ChannelMismatchError{Tile: i + 1, Want: want, Got: got}
		}
	}

	b := tiles[0].Bounds()
	rects, offset := Placements(extents, b.Dx(), b.Dy())

	var size image.Rectangle
	for _, r := range rects {
		size = size.Union(r)
	}

	canvas, err := newCanvas(want, image.Rect(0, 0, size.Max.X, size.Max.Y))
	if err != nil {
		return nil, err
	}
	for i, t := range tiles {
		xdraw.Draw(canvas, rects[i], t, t.Bounds().Min, xdraw.Src)
	}

	return &Mosaic{Image: canvas, Placements: rects, Offset: offset}, nil
}
