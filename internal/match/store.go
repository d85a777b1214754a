package match

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"gridstitch/internal/diag"
	"gridstitch/internal/grid"
	"gridstitch/pkg/geometry"
)

// Correspondence holds the index-aligned point pairs of one overlap edge:
// PointsI in tile Edge.I's local frame and PointsJ in tile Edge.J's.
type Correspondence struct {
	Edge    grid.Edge
	PointsI []geometry.Point2D
	PointsJ []geometry.Point2D
}

// Len returns the number of pairs.
func (c Correspondence) Len() int { return len(c.PointsI) }

// Store keeps one Correspondence per overlap edge in topology order.
// Edges whose matcher call failed or found nothing are kept with an empty
// pair list so later stages can report them.
type Store struct {
	items []Correspondence
}

// NewStore creates a store with an empty pair list for every edge.
func NewStore(edges []grid.Edge) *Store {
	s := &Store{items: make([]Correspondence, len(edges))}
	for k, e := range edges {
		s.items[k] = Correspondence{Edge: e}
	}
	return s
}

// Put stores the inlier pairs of r for the k-th edge.
func (s *Store) Put(k int, r Result) error {
	if k < 0 || k >= len(s.items) {
		return fmt.Errorf("edge index %d out of range [0,%d)", k, len(s.items))
	}
	if err := r.Validate(); err != nil {
		return fmt.Errorf("edge %s: %w", s.items[k].Edge, err)
	}

	c := &s.items[k]
	c.PointsI = c.PointsI[:0]
	c.PointsJ = c.PointsJ[:0]
	for n := range r.PointsA {
		if r.Inliers != nil && !r.Inliers[n] {
			continue
		}
		c.PointsI = append(c.PointsI, r.PointsA[n])
		c.PointsJ = append(c.PointsJ, r.PointsB[n])
	}
	return nil
}

// Len returns the number of edges held, including empty ones.
func (s *Store) Len() int { return len(s.items) }

// Correspondences returns the stored entries in edge order.
func (s *Store) Correspondences() []Correspondence {
	return s.items
}

// Pairs returns the total number of stored pairs across all edges.
func (s *Store) Pairs() int {
	n := 0
	for _, c := range s.items {
		n += c.Len()
	}
	return n
}

// Collect runs the matcher over every edge of g with at most workers calls in
// flight. A failing call leaves its edge empty and yields a MatchFailed
// warning; only context cancellation aborts the collection.
func Collect(ctx context.Context, g *grid.TileGrid, edges []grid.Edge, m Matcher, workers int) (*Store, []diag.Warning, error) {
	for _, e := range edges {
		if err := e.Validate(g.Rows, g.Cols); err != nil {
			return nil, nil, err
		}
	}

	store := NewStore(edges)
	results := make([]Result, len(edges))
	failures := make([]error, len(edges))

	eg, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		eg.SetLimit(workers)
	}
	for k, e := range edges {
		k, e := k, e
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r, err := m.Match(ctx, g.Tiles[e.I], g.Tiles[e.J])
			if err == nil {
				err = r.Validate()
			}
			if err != nil {
				failures[k] = err
				return nil
			}
			results[k] = r
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, nil, fmt.Errorf("collect correspondences: %w", err)
	}

	var warnings []diag.Warning
	for k := range edges {
		if failures[k] != nil {
			e := edges[k]
			warnings = append(warnings, diag.Warning{Kind: diag.MatchFailed, Edge: &e, Message: failures[k].Error()})
			continue
		}
		if err := store.Put(k, results[k]); err != nil {
			return nil, nil, err
		}
	}
	return store, warnings, nil
}
