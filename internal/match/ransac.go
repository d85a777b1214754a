package match

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"gridstitch/pkg/geometry"
)

// ErrTooFewPoints is returned when a fit has fewer pairs than its minimal sample.
var ErrTooFewPoints = errors.New("too few point pairs for a similarity fit")

// RansacOptions configures FitSimilarityRANSAC.
type RansacOptions struct {
	Iterations int     // hypotheses to draw
	Threshold  float64 // reprojection error bound for an inlier, in pixels
	Seed       int64   // sampling seed; equal seeds give equal masks
}

// DefaultRansacOptions returns the options used by the gocv matcher.
func DefaultRansacOptions() RansacOptions {
	return RansacOptions{Iterations: 2000, Threshold: 3.0, Seed: 1}
}

// FitSimilarityRANSAC fits a partial affine transform (rotation, uniform
// scale, translation) mapping src onto dst and returns it with the inlier
// mask. The mask is what the feature matcher reports to the correspondence
// store; the transform itself is informational.
func FitSimilarityRANSAC(src, dst []geometry.Point2D, opts RansacOptions) (geometry.AffineTransform, []bool, error) {
	if len(src) != len(dst) {
		return geometry.AffineTransform{}, nil, fmt.Errorf("point count mismatch: %d vs %d", len(src), len(dst))
	}
	n := len(src)
	if n < 2 {
		return geometry.AffineTransform{}, make([]bool, n), ErrTooFewPoints
	}
	if opts.Iterations <= 0 {
		opts.Iterations = 1
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	var best geometry.AffineTransform
	bestCount := -1

	for iter := 0; iter < opts.Iterations; iter++ {
		i0 := rng.Intn(n)
		i1 := rng.Intn(n - 1)
		if i1 >= i0 {
			i1++
		}

		t, err := similarityFrom2(src[i0], src[i1], dst[i0], dst[i1])
		if err != nil {
			continue
		}
		if c := countInliers(t, src, dst, opts.Threshold, nil); c > bestCount {
			best, bestCount = t, c
		}
	}

	if bestCount < 2 {
		return geometry.AffineTransform{}, make([]bool, n), fmt.Errorf("similarity RANSAC found %d inliers", max(bestCount, 0))
	}

	mask := make([]bool, n)
	countInliers(best, src, dst, opts.Threshold, mask)

	// Refit on the consensus set and keep the refit if it explains at least as much.
	refit, err := similarityLeastSquares(src, dst, mask)
	if err == nil {
		refined := make([]bool, n)
		if countInliers(refit, src, dst, opts.Threshold, refined) >= bestCount {
			return refit, refined, nil
		}
	}
	return best, mask, nil
}

// countInliers counts pairs within threshold of t and fills mask when non-nil.
func countInliers(t geometry.AffineTransform, src, dst []geometry.Point2D, threshold float64, mask []bool) int {
	count := 0
	for i := range src {
		ok := t.Apply(src[i]).Distance(dst[i]) < threshold
		if ok {
			count++
		}
		if mask != nil {
			mask[i] = ok
		}
	}
	return count
}

// similarityFrom2 computes the similarity transform mapping s0->d0 and s1->d1.
func similarityFrom2(s0, s1, d0, d1 geometry.Point2D) (geometry.AffineTransform, error) {
	sv := s1.Sub(s0)
	dv := d1.Sub(d0)

	srcLen := math.Hypot(sv.X, sv.Y)
	dstLen := math.Hypot(dv.X, dv.Y)
	if srcLen < 1e-3 || dstLen < 1e-3 {
		return geometry.AffineTransform{}, fmt.Errorf("degenerate points")
	}

	theta := math.Atan2(dv.Y, dv.X) - math.Atan2(sv.Y, sv.X)
	scale := dstLen / srcLen

	// d0 = sR * s0 + t  =>  t = d0 - sR * s0
	rs := geometry.Similarity(theta, scale, 0, 0).Apply(s0)
	return geometry.Similarity(theta, scale, d0.X-rs.X, d0.Y-rs.Y), nil
}

// similarityLeastSquares solves for [a b tx ty] in
//
//	x' = a*x - b*y + tx
//	y' = b*x + a*y + ty
//
// over the masked pairs using QR decomposition.
func similarityLeastSquares(src, dst []geometry.Point2D, mask []bool) (geometry.AffineTransform, error) {
	var rows int
	for _, ok := range mask {
		if ok {
			rows += 2
		}
	}
	if rows < 4 {
		return geometry.AffineTransform{}, ErrTooFewPoints
	}

	A := mat.NewDense(rows, 4, nil)
	B := mat.NewVecDense(rows, nil)
	r := 0
	for i, ok := range mask {
		if !ok {
			continue
		}
		x, y := src[i].X, src[i].Y

		A.Set(r, 0, x)
		A.Set(r, 1, -y)
		A.Set(r, 2, 1)
		B.SetVec(r, dst[i].X)

		A.Set(r+1, 0, y)
		A.Set(r+1, 1, x)
		A.Set(r+1, 3, 1)
		B.SetVec(r+1, dst[i].Y)
		r += 2
	}

	var qr mat.QR
	qr.Factorize(A)

	var params mat.VecDense
	if err := qr.SolveVecTo(&params, false, B); err != nil {
		return geometry.AffineTransform{}, err
	}

	a, b := params.AtVec(0), params.AtVec(1)
	return geometry.AffineTransform{
		A: a, B: -b, TX: params.AtVec(2),
		C: b, D: a, TY: params.AtVec(3),
	}, nil
}
