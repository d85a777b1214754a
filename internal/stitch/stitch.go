// Package stitch runs the full tile registration pipeline:
//
//  1. Topology: enumerate the overlap edges of the grid
//  2. Match: collect point correspondences for every edge
//  3. Filter: drop implausible pairs and find floating tiles
//  4. Solve: minimize the total canvas distance over tile origins
//  5. Composite: blit the tiles onto one canvas
//
// Stages 1-4 are available on their own through Runner.Register, which only
// updates tile origins and never touches pixels.
package stitch

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"gridstitch/internal/diag"
	"gridstitch/internal/grid"
	"gridstitch/internal/match"
	"gridstitch/internal/mosaic"
	"gridstitch/internal/registration"
	"gridstitch/pkg/geometry"
)

// Options configures one pipeline run.
type Options struct {
	Rows     int
	Cols     int
	Margin   float64
	MaxDelta float64
	Workers  int // concurrent matcher calls; 0 means unbounded
	Solver   registration.Options
}

// DefaultOptions returns pipeline defaults for a rows x cols grid.
func DefaultOptions(rows, cols int) Options {
	return Options{
		Rows:     rows,
		Cols:     cols,
		Margin:   grid.DefaultMargin,
		MaxDelta: registration.DefaultMaxDelta,
		Workers:  4,
		Solver:   registration.DefaultOptions(),
	}
}

// Stats records stage timings.
type Stats struct {
	MatchTime     time.Duration
	SolveTime     time.Duration
	CompositeTime time.Duration
}

// Result holds everything a run produced.
type Result struct {
	Grid  *grid.TileGrid
	Edges []grid.Edge
	// Matched are the inlier pairs per edge before outlier filtering.
	Matched []match.Correspondence
	// Correspondences survived filtering and drove the solver.
	Correspondences []match.Correspondence
	Floating        []int
	Solution        *registration.Solution
	Extents         []geometry.Extent
	Residuals       []registration.EdgeResidual
	MeanResidual    float64
	Mosaic          *mosaic.Mosaic // nil after Register
	Report          diag.Report
	Stats           Stats
}

// Runner executes the pipeline with one matcher. It keeps no per-run state.
type Runner struct {
	Matcher match.Matcher
	Logger  *log.Logger
}

// NewRunner creates a runner. A nil logger uses log.Default().
func NewRunner(m match.Matcher, logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{Matcher: m, Logger: logger}
}

// Execute builds the grid from row-major images, registers it and
// composites the mosaic.
func (r *Runner) Execute(ctx context.Context, images []image.Image, names []string, opts Options) (*Result, error) {
	g, err := grid.New(opts.Rows, opts.Cols, images, names, opts.Margin)
	if err != nil {
		return nil, err
	}
	res, err := r.Register(ctx, g, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	m, err := mosaic.Composite(g.Images(), res.Extents)
	if err != nil {
		return nil, fmt.Errorf("composite: %w", err)
	}
	res.Mosaic = m
	res.Stats.CompositeTime = time.Since(start)

	b := m.Image.Bounds()
	r.Logger.Info("composited mosaic",
		"width", b.Dx(),
		"height", b.Dy(),
		"duration", res.Stats.CompositeTime)
	return res, nil
}

// Register estimates the origin of every tile in g and writes it back to
// the grid. Recoverable problems end up in Result.Report.
func (r *Runner) Register(ctx context.Context, g *grid.TileGrid, opts Options) (*Result, error) {
	if r.Matcher == nil {
		return nil, fmt.Errorf("no matcher configured")
	}
	res := &Result{Grid: g}

	edges, err := grid.Edges(g.Rows, g.Cols)
	if err != nil {
		return nil, err
	}
	res.Edges = edges

	start := time.Now()
	store, warnings, err := match.Collect(ctx, g, edges, r.Matcher, opts.Workers)
	if err != nil {
		return nil, fmt.Errorf("match: %w", err)
	}
	res.Report.Add(warnings...)
	res.Matched = store.Correspondences()
	res.Stats.MatchTime = time.Since(start)

	r.Logger.Info("matched edges",
		"edges", len(edges),
		"pairs", store.Pairs(),
		"failed", len(warnings),
		"duration", res.Stats.MatchTime)

	filtered, err := registration.FilterOutliers(res.Matched, g.Rows, g.Cols, opts.MaxDelta)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	res.Correspondences = filtered.Correspondences
	res.Floating = filtered.Floating
	res.Report.Add(filtered.Warnings...)

	r.Logger.Debug("filtered outliers",
		"edges", len(filtered.Correspondences),
		"pairs", countPairs(filtered.Correspondences),
		"floating", len(filtered.Floating))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start = time.Now()
	sol, err := registration.Solve(res.Correspondences, g.Origins(), res.Floating, opts.Solver)
	if err != nil {
		return nil, fmt.Errorf("solve: %w", err)
	}
	res.Solution = sol
	res.Report.Add(sol.Warnings...)
	res.Stats.SolveTime = time.Since(start)

	r.Logger.Info("solved tile origins",
		"status", sol.Status,
		"iterations", sol.Iterations,
		"initial", sol.InitialDistance,
		"distance", sol.Distance,
		"duration", res.Stats.SolveTime)

	if err := g.SetOrigins(sol.Origins); err != nil {
		return nil, err
	}
	res.Extents = registration.Extents(sol.Origins, float64(g.TileWidth), float64(g.TileHeight))
	res.Residuals, res.MeanResidual = registration.Residuals(res.Correspondences, sol.Origins)
	return res, nil
}

// Vectors returns the surviving correspondences in canvas coordinates for
// drawing on a preview.
func (res *Result) Vectors() []mosaic.Vector {
	if res.Solution == nil {
		return nil
	}
	var out []mosaic.Vector
	for _, p := range registration.Project(res.Correspondences, res.Solution.Origins) {
		horizontal := p.Correspondence.Edge.Orientation == grid.Horizontal
		for k := range p.PointsI {
			out = append(out, mosaic.Vector{From: p.PointsI[k], To: p.PointsJ[k], Horizontal: horizontal})
		}
	}
	return out
}

// Preview renders the solved placements with correspondence vectors.
func (res *Result) Preview(opts mosaic.PreviewOptions) (image.Image, error) {
	return mosaic.RenderPreview(res.Grid.Images(), res.Grid.Names(), res.Extents, res.Vectors(), opts)
}

// LoadTiles decodes tiles in the given order. Names are the file names
// without extension.
func LoadTiles(paths []string) ([]image.Image, []string, error) {
	if len(paths) == 0 {
		return nil, nil, mosaic.ErrNoTiles
	}
	images := make([]image.Image, len(paths))
	names := make([]string, len(paths))
	for i, p := range paths {
		img, _, err := mosaic.Load(p)
		if err != nil {
			return nil, nil, fmt.Errorf("tile %d: %w", i, err)
		}
		images[i] = img
		base := filepath.Base(p)
		names[i] = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return images, names, nil
}

func countPairs(cs []match.Correspondence) int {
	n := 0
	for _, c := range cs {
		n += c.Len()
	}
	return n
}
