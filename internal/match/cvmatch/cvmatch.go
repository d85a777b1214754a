// Package cvmatch implements match.Matcher with OpenCV keypoints:
// SIFT or ORB detection, brute-force cross-checked descriptor matching and
// a similarity RANSAC inlier mask.
package cvmatch

import (
	"context"
	"fmt"
	"image"
	"sort"
	"strings"
	"sync"

	"gocv.io/x/gocv"

	"gridstitch/internal/grid"
	"gridstitch/internal/match"
	"gridstitch/pkg/geometry"
)

// Detector selects the keypoint detector.
type Detector string

const (
	SIFT Detector = "sift"
	ORB  Detector = "orb"
)

// ParseDetector parses a detector name.
func ParseDetector(s string) (Detector, error) {
	switch d := Detector(strings.ToLower(s)); d {
	case SIFT, ORB:
		return d, nil
	default:
		return "", fmt.Errorf("unknown detector %q", s)
	}
}

// Options configures the matcher.
type Options struct {
	Detector   Detector
	MaxMatches int // keep the best N cross-checked matches; 0 keeps all
	Ransac     match.RansacOptions
}

// DefaultOptions returns default matcher options.
func DefaultOptions() Options {
	return Options{
		Detector: SIFT,
		Ransac:   match.DefaultRansacOptions(),
	}
}

type features struct {
	keypoints   []gocv.KeyPoint
	descriptors gocv.Mat
}

// Matcher computes keypoints once per tile and matches them per edge.
// It is safe for concurrent use; Close releases the cached descriptors.
type Matcher struct {
	opts Options

	mu    sync.Mutex
	cache map[int]*features
}

// New creates a Matcher.
func New(opts Options) (*Matcher, error) {
	if _, err := ParseDetector(string(opts.Detector)); err != nil {
		return nil, err
	}
	return &Matcher{opts: opts, cache: make(map[int]*features)}, nil
}

// Close releases all cached descriptor matrices.
func (m *Matcher) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, f := range m.cache {
		f.descriptors.Close()
		delete(m.cache, k)
	}
	return nil
}

// Match implements match.Matcher.
func (m *Matcher) Match(ctx context.Context, a, b *grid.Tile) (match.Result, error) {
	if err := ctx.Err(); err != nil {
		return match.Result{}, err
	}

	fa, err := m.featuresFor(a)
	if err != nil {
		return match.Result{}, err
	}
	fb, err := m.featuresFor(b)
	if err != nil {
		return match.Result{}, err
	}
	if fa.descriptors.Empty() || fb.descriptors.Empty() {
		return match.Result{}, nil
	}

	bf := gocv.NewBFMatcherWithParams(m.norm(), true)
	defer bf.Close()

	var matches []gocv.DMatch
	for _, knn := range bf.KnnMatch(fa.descriptors, fb.descriptors, 1) {
		if len(knn) > 0 {
			matches = append(matches, knn[0])
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Distance < matches[j].Distance })
	if m.opts.MaxMatches > 0 && len(matches) > m.opts.MaxMatches {
		matches = matches[:m.opts.MaxMatches]
	}

	res := match.Result{
		PointsA: make([]geometry.Point2D, len(matches)),
		PointsB: make([]geometry.Point2D, len(matches)),
	}
	for k, dm := range matches {
		ka := fa.keypoints[dm.QueryIdx]
		kb := fb.keypoints[dm.TrainIdx]
		res.PointsA[k] = geometry.Point2D{X: ka.X, Y: ka.Y}
		res.PointsB[k] = geometry.Point2D{X: kb.X, Y: kb.Y}
	}

	if len(matches) < 2 {
		res.Inliers = make([]bool, len(matches))
		return res, nil
	}
	_, mask, err := match.FitSimilarityRANSAC(res.PointsA, res.PointsB, m.opts.Ransac)
	if err != nil {
		// No consensus: every pair is an outlier.
		res.Inliers = make([]bool, len(matches))
		return res, nil
	}
	res.Inliers = mask
	return res, nil
}

func (m *Matcher) norm() gocv.NormType {
	if m.opts.Detector == ORB {
		return gocv.NormHamming
	}
	return gocv.NormL2
}

// featuresFor returns the cached keypoints of a tile, detecting them on first use.
func (m *Matcher) featuresFor(t *grid.Tile) (*features, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.cache[t.Index]; ok {
		return f, nil
	}

	gray, err := toGrayMat(t.Image)
	if err != nil {
		return nil, fmt.Errorf("tile %d: %w", t.Index, err)
	}
	defer gray.Close()

	mask := gocv.NewMat()
	defer mask.Close()

	var f features
	switch m.opts.Detector {
	case ORB:
		orb := gocv.NewORB()
		defer orb.Close()
		f.keypoints, f.descriptors = orb.DetectAndCompute(gray, mask)
	default:
		sift := gocv.NewSIFT()
		defer sift.Close()
		f.keypoints, f.descriptors = sift.DetectAndCompute(gray, mask)
	}

	m.cache[t.Index] = &f
	return &f, nil
}

// toGrayMat converts a tile bitmap to an 8-bit single channel Mat.
func toGrayMat(img image.Image) (gocv.Mat, error) {
	if g, ok := img.(*image.Gray); ok {
		return gocv.ImageGrayToMatGray(g)
	}

	bgr, err := gocv.ImageToMatRGB(img)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("convert to mat: %w", err)
	}
	defer bgr.Close()

	gray := gocv.NewMat()
	gocv.CvtColor(bgr, &gray, gocv.ColorBGRToGray)
	return gray, nil
}
