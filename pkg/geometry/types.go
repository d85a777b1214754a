// Package geometry provides basic geometric types shared by the registration
// and compositing packages.
package geometry

import (
	"image"
	"math"
)

// Point2D represents a 2D point with floating-point coordinates.
// Canvas y grows downward, as in raster images.
type Point2D struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// NewPoint2D creates a new Point2D.
func NewPoint2D(x, y float64) Point2D {
	return Point2D{X: x, Y: y}
}

// Distance returns the Euclidean distance to another point.
func (p Point2D) Distance(other Point2D) float64 {
	return math.Hypot(p.X-other.X, p.Y-other.Y)
}

// Add returns the sum of two points.
func (p Point2D) Add(other Point2D) Point2D {
	return Point2D{X: p.X + other.X, Y: p.Y + other.Y}
}

// Sub returns the difference of two points.
func (p Point2D) Sub(other Point2D) Point2D {
	return Point2D{X: p.X - other.X, Y: p.Y - other.Y}
}

// Scale returns the point scaled by a factor.
func (p Point2D) Scale(factor float64) Point2D {
	return Point2D{X: p.X * factor, Y: p.Y * factor}
}

// Extent is the placement of a tile on the canvas, in the
// left, right, bottom, top order used by image plotting tools.
// Bottom is greater than Top because y grows downward.
type Extent struct {
	Left   float64 `json:"left" yaml:"left"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
	Top    float64 `json:"top" yaml:"top"`
}

// NewExtent returns the extent of a w x h tile whose top-left corner is origin.
func NewExtent(origin Point2D, w, h float64) Extent {
	return Extent{Left: origin.X, Right: origin.X + w, Bottom: origin.Y + h, Top: origin.Y}
}

// Round snaps every coordinate to the nearest integer pixel.
func (e Extent) Round() image.Rectangle {
	return image.Rect(
		int(math.Round(e.Left)), int(math.Round(e.Top)),
		int(math.Round(e.Right)), int(math.Round(e.Bottom)),
	)
}

// Width returns the horizontal size of the extent.
func (e Extent) Width() float64 { return e.Right - e.Left }

// Height returns the vertical size of the extent.
func (e Extent) Height() float64 { return e.Bottom - e.Top }

// Union returns the smallest extent containing both extents.
func (e Extent) Union(other Extent) Extent {
	return Extent{
		Left:   math.Min(e.Left, other.Left),
		Right:  math.Max(e.Right, other.Right),
		Bottom: math.Max(e.Bottom, other.Bottom),
		Top:    math.Min(e.Top, other.Top),
	}
}

// BoundingExtent returns the union of all extents. It returns the zero
// Extent for an empty slice.
func BoundingExtent(extents []Extent) Extent {
	if len(extents) == 0 {
		return Extent{}
	}
	out := extents[0]
	for _, e := range extents[1:] {
		out = out.Union(e)
	}
	return out
}

// AffineTransform represents a 2x3 affine transformation matrix.
// [a b tx]
// [c d ty]
type AffineTransform struct {
	A, B, TX float64
	C, D, TY float64
}

// Identity returns the identity transform.
func Identity() AffineTransform {
	return AffineTransform{A: 1, D: 1}
}

// Translation returns a translation transform.
func Translation(tx, ty float64) AffineTransform {
	return AffineTransform{A: 1, D: 1, TX: tx, TY: ty}
}

// Similarity returns a rotation by theta radians, uniform scale s and
// translation (tx, ty).
func Similarity(theta, s, tx, ty float64) AffineTransform {
	cos := s * math.Cos(theta)
	sin := s * math.Sin(theta)
	return AffineTransform{A: cos, B: -sin, TX: tx, C: sin, D: cos, TY: ty}
}

// Apply applies the transform to a point.
func (t AffineTransform) Apply(p Point2D) Point2D {
	return Point2D{
		X: t.A*p.X + t.B*p.Y + t.TX,
		Y: t.C*p.X + t.D*p.Y + t.TY,
	}
}

// Scale returns the uniform scale factor of a similarity transform.
func (t AffineTransform) Scale() float64 {
	return math.Hypot(t.A, t.C)
}

// Angle returns the rotation of a similarity transform in radians.
func (t AffineTransform) Angle() float64 {
	return math.Atan2(t.C, t.A)
}

// Centroid computes the centroid (average position) of a set of points.
func Centroid(points []Point2D) Point2D {
	if len(points) == 0 {
		return Point2D{}
	}
	var sumX, sumY float64
	for _, p := range points {
		sumX += p.X
		sumY += p.Y
	}
	n := float64(len(points))
	return Point2D{X: sumX / n, Y: sumY / n}
}
