package stitch

import (
	"fmt"

	"gridstitch/internal/mosaic"
	"gridstitch/internal/project"
	"gridstitch/internal/registration"
)

// Positions builds a positions file for the solved layout, to be saved at
// path. imagePaths are the tile sources in grid order.
func (res *Result) Positions(path string, imagePaths []string, method registration.Method) (*project.File, error) {
	if res.Solution == nil {
		return nil, fmt.Errorf("no solution to export")
	}
	g := res.Grid
	p := project.New(g.Rows, g.Cols, g.TileWidth, g.TileHeight)
	if err := p.SetLayout(path, imagePaths, res.Solution.Origins); err != nil {
		return nil, err
	}
	sol := res.Solution
	p.Solver = project.SolverInfo{
		Method:          string(method),
		Status:          sol.Status,
		Converged:       sol.Converged,
		Iterations:      sol.Iterations,
		InitialDistance: sol.InitialDistance,
		Distance:        sol.Distance,
		Pinned:          sol.Pinned,
	}
	return p, nil
}

// Compose re-composites a mosaic from a positions file saved at path.
func Compose(p *project.File, path string) (*mosaic.Mosaic, error) {
	paths := p.ImagePaths(path)
	images, _, err := LoadTiles(paths)
	if err != nil {
		return nil, err
	}
	for i, img := range images {
		if b := img.Bounds(); b.Dx() != p.TileWidth || b.Dy() != p.TileHeight {
			return nil, fmt.Errorf("tile %d (%s) is %dx%d, positions expect %dx%d",
				i, paths[i], b.Dx(), b.Dy(), p.TileWidth, p.TileHeight)
		}
	}
	extents := registration.Extents(p.Origins(), float64(p.TileWidth), float64(p.TileHeight))
	return mosaic.Composite(images, extents)
}
