// Package registration estimates the canvas origin of every tile in a grid
// from per-edge point correspondences: it rejects implausible pairs, projects
// local points onto the canvas and minimizes the total distance between
// matched points over all tile origins at once.
package registration

import (
	"fmt"
	"math"
	"sort"

	"gridstitch/internal/diag"
	"gridstitch/internal/grid"
	"gridstitch/internal/match"
)

// DefaultMaxDelta is the default bound, in pixels, on the displacement of a
// pair perpendicular to its edge.
const DefaultMaxDelta = 20.0

// FilterResult is the outcome of FilterOutliers.
type FilterResult struct {
	// Correspondences holds the surviving edges in input order. Edges left
	// with no pair are not included.
	Correspondences []match.Correspondence
	// Floating lists, ascending, the tiles that appear in no surviving edge.
	Floating []int
	Warnings []diag.Warning
}

// FilterOutliers drops pairs whose displacement across the edge is too
// large. For a horizontal edge the neighbour sits to the right, so a true
// match moves by almost nothing vertically; for a vertical edge by almost
// nothing horizontally. A pair is kept when that perpendicular displacement
// is below maxDelta, and always when it is exactly zero.
//
// Every edge must satisfy the grid's orientation rule; any other index delta
// is returned as a *grid.TopologyError.
func FilterOutliers(cs []match.Correspondence, rows, cols int, maxDelta float64) (*FilterResult, error) {
	if rows < 1 || cols < 1 {
		return nil, &grid.TopologyError{Rows: rows, Cols: cols, Reason: "rows and cols must be >= 1", Err: grid.ErrInvalidDimensions}
	}
	if maxDelta < 0 || math.IsNaN(maxDelta) {
		return nil, fmt.Errorf("max delta must be non-negative, got %v", maxDelta)
	}

	res := &FilterResult{}
	covered := make([]bool, rows*cols)

	for _, c := range cs {
		if err := c.Edge.Validate(rows, cols); err != nil {
			return nil, err
		}
		if len(c.PointsI) != len(c.PointsJ) {
			return nil, fmt.Errorf("edge %s: point lists differ in length: %d vs %d", c.Edge, len(c.PointsI), len(c.PointsJ))
		}

		kept := match.Correspondence{Edge: c.Edge}
		for k := range c.PointsI {
			v := c.PointsJ[k].Sub(c.PointsI[k])
			delta := math.Abs(v.X)
			if c.Edge.Orientation == grid.Horizontal {
				delta = math.Abs(v.Y)
			}
			if delta < maxDelta || delta == 0 {
				kept.PointsI = append(kept.PointsI, c.PointsI[k])
				kept.PointsJ = append(kept.PointsJ, c.PointsJ[k])
			}
		}

		if kept.Len() == 0 {
			e := c.Edge
			res.Warnings = append(res.Warnings, diag.Warning{
				Kind:    diag.NoCorrespondence,
				Edge:    &e,
				Message: fmt.Sprintf("no corresponding feature points (%d candidates rejected)", c.Len()),
			})
			continue
		}

		covered[c.Edge.I] = true
		covered[c.Edge.J] = true
		res.Correspondences = append(res.Correspondences, kept)
	}

	for t, ok := range covered {
		if !ok {
			res.Floating = append(res.Floating, t)
		}
	}
	sort.Ints(res.Floating)
	if len(res.Floating) > 0 {
		res.Warnings = append(res.Warnings, diag.Warning{
			Kind:    diag.FloatingTile,
			Tiles:   append([]int(nil), res.Floating...),
			Message: "no key points found, keeping initial lattice position",
		})
	}
	return res, nil
}
