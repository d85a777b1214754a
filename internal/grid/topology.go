package grid

import "fmt"

// Orientation tags an overlap edge by the axis along which its tiles are neighbours.
type Orientation int

const (
	Horizontal Orientation = iota // j is right of i
	Vertical                      // j is below i
)

func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Vertical:
		return "vertical"
	default:
		return "unknown"
	}
}

// Edge is an ordered pair of neighbouring tiles expected to share image content.
type Edge struct {
	I, J        int
	Orientation Orientation
}

func (e Edge) String() string {
	return fmt.Sprintf("(%d,%d)/%s", e.I, e.J, e.Orientation)
}

// Edges returns every overlap edge of a rows x cols grid: vertical edges
// first, then horizontal edges, each group in row-major order of tile i.
func Edges(rows, cols int) ([]Edge, error) {
	if err := checkDims(rows, cols); err != nil {
		return nil, err
	}

	edges := make([]Edge, 0, cols*(rows-1)+rows*(cols-1))
	for r := 0; r < rows-1; r++ {
		for c := 0; c < cols; c++ {
			i := r*cols + c
			edges = append(edges, Edge{I: i, J: i + cols, Orientation: Vertical})
		}
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols-1; c++ {
			i := r*cols + c
			edges = append(edges, Edge{I: i, J: i + 1, Orientation: Horizontal})
		}
	}
	return edges, nil
}

// Classify derives the orientation of the pair (i, j) from its index delta.
// Any delta other than 1 or cols is a TopologyError. For a single-column
// grid both rules coincide and the pair is vertical.
func Classify(i, j, rows, cols int) (Orientation, error) {
	n := rows * cols
	switch {
	case i < 0 || j < 0 || i >= n || j >= n:
		return 0, &TopologyError{Rows: rows, Cols: cols, Edge: &Edge{I: i, J: j}, Reason: "tile index out of range"}
	case j-i == cols:
		return Vertical, nil
	case j-i == 1 && i/cols == j/cols:
		return Horizontal, nil
	default:
		return 0, &TopologyError{Rows: rows, Cols: cols, Edge: &Edge{I: i, J: j},
			Reason: fmt.Sprintf("index delta %d is neither 1 nor %d", j-i, cols)}
	}
}

// Validate checks that the edge's tagged orientation matches its index delta.
func (e Edge) Validate(rows, cols int) error {
	o, err := Classify(e.I, e.J, rows, cols)
	if err != nil {
		return err
	}
	if o != e.Orientation {
		return &TopologyError{Rows: rows, Cols: cols, Edge: &e,
			Reason: fmt.Sprintf("tagged %s but delta implies %s", e.Orientation, o)}
	}
	return nil
}
