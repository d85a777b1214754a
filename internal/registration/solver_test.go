package registration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gridstitch/internal/diag"
	"gridstitch/internal/grid"
	"gridstitch/internal/match"
	"gridstitch/pkg/geometry"
)

const tileSize = 100

// truthOrigins places a 2x2 grid with a 10px overlap and tile 3 pushed off
// the regular spacing by (4, -3).
var truthOrigins = []float64{
	0, 0,
	90, 0,
	0, 90,
	94, 87,
}

// perfectCorrespondences builds noise-free pairs for every edge of a 2x2
// grid from canvas points inside each overlap.
func perfectCorrespondences(t *testing.T, truth []float64) []match.Correspondence {
	t.Helper()
	edges, err := grid.Edges(2, 2)
	require.NoError(t, err)

	var cs []match.Correspondence
	for _, e := range edges {
		oi, oj := TileOrigin(truth, e.I), TileOrigin(truth, e.J)
		c := match.Correspondence{Edge: e}
		for k := 0; k < 6; k++ {
			var canvas geometry.Point2D
			if e.Orientation == grid.Horizontal {
				canvas = geometry.Point2D{X: oj.X + 2 + float64(k%3), Y: oj.Y + 15 + float64(k)*11}
			} else {
				canvas = geometry.Point2D{X: oj.X + 15 + float64(k)*11, Y: oj.Y + 2 + float64(k%3)}
			}
			c.PointsI = append(c.PointsI, canvas.Sub(oi))
			c.PointsJ = append(c.PointsJ, canvas.Sub(oj))
		}
		cs = append(cs, c)
	}
	return cs
}

func TestSolveRecoversOffset(t *testing.T) {
	cs := perfectCorrespondences(t, truthOrigins)
	x0 := grid.InitialOrigins(2, 2, tileSize, tileSize, grid.DefaultMargin)

	sol, err := Solve(cs, x0, nil, DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, x0, sol.Initial)
	assert.Greater(t, sol.InitialDistance, 0.0)
	assert.Less(t, sol.Distance, sol.InitialDistance)
	assert.InDelta(t, TotalDistance(cs, sol.Origins), sol.Distance, 1e-6)

	for _, c := range cs {
		got := TileOrigin(sol.Origins, c.Edge.J).Sub(TileOrigin(sol.Origins, c.Edge.I))
		want := TileOrigin(truthOrigins, c.Edge.J).Sub(TileOrigin(truthOrigins, c.Edge.I))
		assert.InDelta(t, want.X, got.X, 1.0, "edge %s", c.Edge)
		assert.InDelta(t, want.Y, got.Y, 1.0, "edge %s", c.Edge)
	}
}

func TestSolveMethods(t *testing.T) {
	cs := perfectCorrespondences(t, truthOrigins)
	x0 := grid.InitialOrigins(2, 2, tileSize, tileSize, grid.DefaultMargin)

	for _, m := range []Method{BFGS, LBFGS, NelderMead} {
		t.Run(string(m), func(t *testing.T) {
			opts := DefaultOptions()
			opts.Method = m
			sol, err := Solve(cs, x0, nil, opts)
			require.NoError(t, err)
			assert.Less(t, sol.Distance, sol.InitialDistance)
		})
	}
}

func TestSolveNoCorrespondences(t *testing.T) {
	x0 := grid.InitialOrigins(2, 3, 50, 40, grid.DefaultMargin)
	calls := 0
	opts := DefaultOptions()
	opts.Progress = func(int, float64) { calls++ }

	sol, err := Solve(nil, x0, nil, opts)
	require.NoError(t, err)
	assert.Equal(t, x0, sol.Origins)
	assert.Zero(t, sol.Distance)
	assert.Zero(t, sol.InitialDistance)
	assert.True(t, sol.Converged)
	assert.Empty(t, sol.Warnings)
	assert.Zero(t, calls)
}

func TestSolvePinnedTilesKeepLattice(t *testing.T) {
	cs := perfectCorrespondences(t, truthOrigins)
	// keep only the top row edge; tiles 2 and 3 float
	var top []match.Correspondence
	for _, c := range cs {
		if c.Edge.I == 0 && c.Edge.J == 1 {
			top = append(top, c)
		}
	}
	x0 := grid.InitialOrigins(2, 2, tileSize, tileSize, grid.DefaultMargin)

	sol, err := Solve(top, x0, []int{2, 3}, DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, x0[4:], sol.Origins[4:])
	assert.Equal(t, []int{2, 3}, sol.Pinned)

	d := TileOrigin(sol.Origins, 1).Sub(TileOrigin(sol.Origins, 0))
	assert.InDelta(t, 90, d.X, 1.0)
	assert.InDelta(t, 0, d.Y, 1.0)
}

func TestSolveDeterministicAndProgressIgnored(t *testing.T) {
	cs := perfectCorrespondences(t, truthOrigins)
	x0 := grid.InitialOrigins(2, 2, tileSize, tileSize, grid.DefaultMargin)

	plain, err := Solve(cs, x0, nil, DefaultOptions())
	require.NoError(t, err)

	var reported []float64
	opts := DefaultOptions()
	opts.Progress = func(_ int, f float64) {
		reported = append(reported, f)
		panic("progress sink failed")
	}
	noisy, err := Solve(cs, x0, nil, opts)
	require.NoError(t, err)

	assert.Equal(t, plain.Origins, noisy.Origins)
	assert.Equal(t, plain.Distance, noisy.Distance)
	require.NotEmpty(t, reported)
	assert.Less(t, reported[len(reported)-1], plain.InitialDistance)
}

func TestSolveIterationCapWarns(t *testing.T) {
	cs := perfectCorrespondences(t, truthOrigins)
	x0 := grid.InitialOrigins(2, 2, tileSize, tileSize, grid.DefaultMargin)

	opts := DefaultOptions()
	opts.MaxIterations = 1
	sol, err := Solve(cs, x0, nil, opts)
	require.NoError(t, err)
	assert.False(t, sol.Converged)
	require.Len(t, sol.Warnings, 1)
	assert.Equal(t, diag.NonConvergence, sol.Warnings[0].Kind)
	assert.LessOrEqual(t, sol.Distance, sol.InitialDistance)
}

func TestSolveRejectsBadInput(t *testing.T) {
	cs := perfectCorrespondences(t, truthOrigins)
	_, err := Solve(cs, []float64{0, 0, 1}, nil, DefaultOptions())
	assert.Error(t, err)

	_, err = Solve(cs, []float64{0, 0, 1, 1}, nil, DefaultOptions())
	assert.Error(t, err)

	x0 := grid.InitialOrigins(2, 2, tileSize, tileSize, grid.DefaultMargin)
	_, err = Solve(cs, x0, []int{9}, DefaultOptions())
	assert.Error(t, err)

	opts := DefaultOptions()
	opts.Method = "newton"
	_, err = Solve(cs, x0, nil, opts)
	assert.Error(t, err)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("BFGS")
	require.NoError(t, err)
	assert.Equal(t, BFGS, m)
	_, err = ParseMethod("cg")
	assert.Error(t, err)
}

func TestResiduals(t *testing.T) {
	cs := perfectCorrespondences(t, truthOrigins)
	res, mean := Residuals(cs, truthOrigins)
	require.Len(t, res, len(cs))
	assert.InDelta(t, 0, mean, 1e-9)
	for _, r := range res {
		assert.Equal(t, 6, r.Pairs)
		assert.InDelta(t, 0, r.Max, 1e-9)
	}

	x0 := grid.InitialOrigins(2, 2, tileSize, tileSize, grid.DefaultMargin)
	_, mean0 := Residuals(cs, x0)
	assert.Greater(t, mean0, 1.0)
}
