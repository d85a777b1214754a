// Command pairmatch matches one pair of neighbouring tiles and prints the
// correspondences, the fitted similarity and the solved offset.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"math"
	"os"
	"sort"

	"gridstitch/internal/grid"
	"gridstitch/internal/match"
	"gridstitch/internal/match/cvmatch"
	"gridstitch/internal/mosaic"
	"gridstitch/internal/registration"
	"gridstitch/pkg/geometry"
)

func main() {
	first := flag.String("a", "", "Path to the left (or top) tile")
	second := flag.String("b", "", "Path to the right (or bottom) tile")
	vertical := flag.Bool("vertical", false, "Tile b is below tile a instead of right of it")
	detector := flag.String("detector", "sift", "Feature detector: sift or orb")
	maxDelta := flag.Float64("max-delta", registration.DefaultMaxDelta, "Max displacement across the edge in pixels")
	preview := flag.String("preview", "", "Write a preview with correspondence vectors to this file")
	flag.Parse()

	if *first == "" || *second == "" {
		fmt.Println("Usage: pairmatch -a <tile> -b <tile> [-vertical] [-detector sift|orb] [-preview out.png]")
		os.Exit(1)
	}

	det, err := cvmatch.ParseDetector(*detector)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	var images []image.Image
	var names []string
	for _, p := range []string{*first, *second} {
		img, f, err := mosaic.Load(p)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load %s: %v\n", p, err)
			os.Exit(1)
		}
		fmt.Printf("Loaded %s: %dx%d %s\n", p, img.Bounds().Dx(), img.Bounds().Dy(), f)
		images = append(images, img)
		names = append(names, p)
	}

	rows, cols := 1, 2
	if *vertical {
		rows, cols = 2, 1
	}
	g, err := grid.New(rows, cols, images, names, grid.DefaultMargin)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build grid: %v\n", err)
		os.Exit(1)
	}

	opts := cvmatch.DefaultOptions()
	opts.Detector = det
	m, err := cvmatch.New(opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create matcher: %v\n", err)
		os.Exit(1)
	}
	defer m.Close()

	fmt.Printf("\n=== Matching (%s) ===\n", det)
	res, err := m.Match(context.Background(), g.Tiles[0], g.Tiles[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Match failed: %v\n", err)
		os.Exit(1)
	}
	inliers := 0
	for _, ok := range res.Inliers {
		if ok {
			inliers++
		}
	}
	fmt.Printf("Cross-checked matches: %d\n", res.Len())
	fmt.Printf("RANSAC inliers: %d\n", inliers)

	edges, _ := grid.Edges(rows, cols)
	store := match.NewStore(edges)
	if err := store.Put(0, res); err != nil {
		fmt.Fprintf(os.Stderr, "Bad match result: %v\n", err)
		os.Exit(1)
	}
	cs := store.Correspondences()

	if c := cs[0]; c.Len() >= 2 {
		t, _, err := match.FitSimilarityRANSAC(c.PointsI, c.PointsJ, match.DefaultRansacOptions())
		if err == nil {
			fmt.Printf("\n=== Similarity a -> b ===\n")
			fmt.Printf("Rotation: %.4f°\n", t.Angle()*180/math.Pi)
			fmt.Printf("Scale: %.6f\n", t.Scale())
			fmt.Printf("Translation: (%.1f, %.1f)\n", t.TX, t.TY)
		}
	}

	fmt.Printf("\n=== Outlier filter (max delta %.1f) ===\n", *maxDelta)
	filtered, err := registration.FilterOutliers(cs, rows, cols, *maxDelta)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Filter failed: %v\n", err)
		os.Exit(1)
	}
	for _, w := range filtered.Warnings {
		fmt.Printf("warning: %s\n", w)
	}
	if len(filtered.Correspondences) == 0 {
		os.Exit(2)
	}
	kept := filtered.Correspondences[0]
	fmt.Printf("Kept pairs: %d of %d\n", kept.Len(), cs[0].Len())

	fmt.Printf("\n=== Solve ===\n")
	sol, err := registration.Solve(filtered.Correspondences, g.Origins(), filtered.Floating, registration.DefaultOptions())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Solve failed: %v\n", err)
		os.Exit(1)
	}
	oa, ob := registration.TileOrigin(sol.Origins, 0), registration.TileOrigin(sol.Origins, 1)
	d := ob.Sub(oa)
	fmt.Printf("Status: %s after %d iterations\n", sol.Status, sol.Iterations)
	fmt.Printf("Offset of b relative to a: (%.2f, %.2f)\n", d.X, d.Y)
	fmt.Printf("Distance: %.3f -> %.3f\n", sol.InitialDistance, sol.Distance)

	printResiduals(kept, oa, ob)

	if *preview != "" {
		if err := g.SetOrigins(sol.Origins); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		var vectors []mosaic.Vector
		for _, p := range registration.Project(filtered.Correspondences, sol.Origins) {
			for k := range p.PointsI {
				vectors = append(vectors, mosaic.Vector{From: p.PointsI[k], To: p.PointsJ[k], Horizontal: !*vertical})
			}
		}
		extents := registration.Extents(sol.Origins, float64(g.TileWidth), float64(g.TileHeight))
		img, err := mosaic.RenderPreview(g.Images(), []string{"a", "b"}, extents, vectors, mosaic.DefaultPreviewOptions())
		if err == nil {
			err = mosaic.Save(img, *preview)
		}
		if err != nil {
			fmt.Fprintf(os.Stderr, "Preview failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("\nWrote preview to %s\n", *preview)
	}
}

func printResiduals(c match.Correspondence, oa, ob geometry.Point2D) {
	type entry struct {
		a   geometry.Point2D
		err float64
	}
	entries := make([]entry, c.Len())
	for k := range c.PointsI {
		pa := c.PointsI[k].Add(oa)
		pb := c.PointsJ[k].Add(ob)
		entries[k] = entry{a: c.PointsI[k], err: pa.Distance(pb)}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].err > entries[j].err })

	fmt.Printf("\nPer-pair residuals (worst first):\n")
	for i, e := range entries {
		if i == 10 {
			fmt.Printf("  ... %d more\n", len(entries)-i)
			break
		}
		fmt.Printf("  a(%7.1f, %7.1f)  err %.2f px\n", e.a.X, e.a.Y, e.err)
	}
}
