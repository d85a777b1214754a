// Package grid describes a regular nrows x ncols grid of overlapping tiles:
// its dimensions, the fixed neighbour graph between tiles and the initial
// lattice guess for tile origins.
package grid

import (
	"errors"
	"fmt"
	"image"

	"gridstitch/pkg/geometry"
)

// DefaultMargin is the extra spacing between tiles in the initial lattice.
// It keeps matched points apart at the start of the optimization.
const DefaultMargin = 20

// ErrInvalidDimensions is wrapped by TopologyError when rows or cols is not positive.
var ErrInvalidDimensions = errors.New("grid dimensions must be positive")

// TopologyError reports an invalid grid or an edge that breaks the
// orientation rule. It always indicates a programming defect.
type TopologyError struct {
	Rows, Cols int
	Edge       *Edge
	Reason     string
	Err        error
}

func (e *TopologyError) Error() string {
	if e.Edge != nil {
		return fmt.Sprintf("topology %dx%d: edge (%d,%d): %s", e.Rows, e.Cols, e.Edge.I, e.Edge.J, e.Reason)
	}
	return fmt.Sprintf("topology %dx%d: %s", e.Rows, e.Cols, e.Reason)
}

func (e *TopologyError) Unwrap() error { return e.Err }

// Tile is one bitmap of the grid and its current canvas origin.
type Tile struct {
	Index  int
	Name   string
	Image  image.Image
	Origin geometry.Point2D
}

// TileGrid is a regular grid of same-size tiles, stored row-major.
type TileGrid struct {
	Rows       int
	Cols       int
	TileWidth  int
	TileHeight int
	Tiles      []*Tile
}

// New creates a TileGrid from row-major bitmaps. All bitmaps must share the
// same dimensions and there must be exactly rows*cols of them. Tile origins
// start on the lattice with the given margin.
func New(rows, cols int, images []image.Image, names []string, margin float64) (*TileGrid, error) {
	if err := checkDims(rows, cols); err != nil {
		return nil, err
	}
	if len(images) != rows*cols {
		return nil, fmt.Errorf("grid %dx%d needs %d tiles, got %d", rows, cols, rows*cols, len(images))
	}
	if len(names) != 0 && len(names) != len(images) {
		return nil, fmt.Errorf("got %d names for %d tiles", len(names), len(images))
	}

	b := images[0].Bounds()
	g := &TileGrid{
		Rows:       rows,
		Cols:       cols,
		TileWidth:  b.Dx(),
		TileHeight: b.Dy(),
		Tiles:      make([]*Tile, len(images)),
	}

	origins := InitialOrigins(rows, cols, g.TileWidth, g.TileHeight, margin)
	for i, img := range images {
		ib := img.Bounds()
		if ib.Dx() != g.TileWidth || ib.Dy() != g.TileHeight {
			return nil, fmt.Errorf("tile %d is %dx%d, expected %dx%d", i, ib.Dx(), ib.Dy(), g.TileWidth, g.TileHeight)
		}
		t := &Tile{Index: i, Image: img}
		if len(names) > 0 {
			t.Name = names[i]
		}
		t.Origin = geometry.Point2D{X: origins[2*i], Y: origins[2*i+1]}
		g.Tiles[i] = t
	}
	return g, nil
}

// Len returns the number of tiles.
func (g *TileGrid) Len() int { return g.Rows * g.Cols }

// RowCol returns the grid position of a tile index.
func (g *TileGrid) RowCol(idx int) (row, col int) {
	return idx / g.Cols, idx % g.Cols
}

// Origins returns the flattened origin vector, x and y interleaved per tile.
func (g *TileGrid) Origins() []float64 {
	out := make([]float64, 2*len(g.Tiles))
	for i, t := range g.Tiles {
		out[2*i] = t.Origin.X
		out[2*i+1] = t.Origin.Y
	}
	return out
}

// SetOrigins overwrites every tile origin from a flattened vector.
func (g *TileGrid) SetOrigins(x []float64) error {
	if len(x) != 2*len(g.Tiles) {
		return fmt.Errorf("origin vector has length %d, want %d", len(x), 2*len(g.Tiles))
	}
	for i, t := range g.Tiles {
		t.Origin = geometry.Point2D{X: x[2*i], Y: x[2*i+1]}
	}
	return nil
}

// Images returns the tile bitmaps in grid order.
func (g *TileGrid) Images() []image.Image {
	out := make([]image.Image, len(g.Tiles))
	for i, t := range g.Tiles {
		out[i] = t.Image
	}
	return out
}

// Names returns the tile names in grid order.
func (g *TileGrid) Names() []string {
	out := make([]string, len(g.Tiles))
	for i, t := range g.Tiles {
		out[i] = t.Name
	}
	return out
}

// InitialOrigins returns the regular lattice guess: tile (row, col) starts
// at (col*(w+margin), row*(h+margin)).
func InitialOrigins(rows, cols, tileW, tileH int, margin float64) []float64 {
	x0 := make([]float64, 0, 2*rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x0 = append(x0,
				float64(c)*(float64(tileW)+margin),
				float64(r)*(float64(tileH)+margin))
		}
	}
	return x0
}

func checkDims(rows, cols int) error {
	if rows < 1 || cols < 1 {
		return &TopologyError{Rows: rows, Cols: cols, Reason: "rows and cols must be >= 1", Err: ErrInvalidDimensions}
	}
	return nil
}
