// Package match turns tile pairs into local-frame point correspondences.
// It defines the contract of an external feature matcher, stores the
// inlier pairs per overlap edge and provides the robust similarity fit
// used to compute inlier masks.
package match

import (
	"context"
	"fmt"

	"gridstitch/internal/grid"
	"gridstitch/pkg/geometry"
)

// Result is the output of one matcher call. PointsA[k] in tile A's local
// frame corresponds to PointsB[k] in tile B's local frame. Inliers is the
// robust-fit mask; a nil mask marks every pair as an inlier.
type Result struct {
	PointsA []geometry.Point2D
	PointsB []geometry.Point2D
	Inliers []bool
}

// Len returns the number of candidate pairs.
func (r Result) Len() int { return len(r.PointsA) }

// Validate checks that the point lists and mask are index-aligned.
func (r Result) Validate() error {
	if len(r.PointsA) != len(r.PointsB) {
		return fmt.Errorf("point lists differ in length: %d vs %d", len(r.PointsA), len(r.PointsB))
	}
	if r.Inliers != nil && len(r.Inliers) != len(r.PointsA) {
		return fmt.Errorf("inlier mask has length %d, want %d", len(r.Inliers), len(r.PointsA))
	}
	return nil
}

// Matcher finds candidate corresponding points between two tiles.
// Implementations must be safe for concurrent use.
type Matcher interface {
	Match(ctx context.Context, a, b *grid.Tile) (Result, error)
}

// MatcherFunc adapts a function to the Matcher interface.
type MatcherFunc func(ctx context.Context, a, b *grid.Tile) (Result, error)

// Match calls f(ctx, a, b).
func (f MatcherFunc) Match(ctx context.Context, a, b *grid.Tile) (Result, error) {
	return f(ctx, a, b)
}
