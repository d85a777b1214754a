package registration

import (
	"math"

	"gridstitch/internal/match"
	"gridstitch/pkg/geometry"
)

// TileOrigin reads tile t's origin from a flattened x,y-interleaved vector.
func TileOrigin(x []float64, t int) geometry.Point2D {
	return geometry.Point2D{X: x[2*t], Y: x[2*t+1]}
}

// Extents returns the canvas extent of every tile for the origin vector x.
func Extents(x []float64, tileW, tileH float64) []geometry.Extent {
	out := make([]geometry.Extent, len(x)/2)
	for t := range out {
		out[t] = geometry.NewExtent(TileOrigin(x, t), tileW, tileH)
	}
	return out
}

// ToCanvas appends the canvas positions of local points to dst.
func ToCanvas(dst, local []geometry.Point2D, origin geometry.Point2D) []geometry.Point2D {
	for _, p := range local {
		dst = append(dst, p.Add(origin))
	}
	return dst
}

// CanvasPair is a correspondence projected onto the canvas.
type CanvasPair struct {
	Correspondence match.Correspondence
	PointsI        []geometry.Point2D
	PointsJ        []geometry.Point2D
}

// Project maps every correspondence onto the canvas for origin vector x.
func Project(cs []match.Correspondence, x []float64) []CanvasPair {
	out := make([]CanvasPair, len(cs))
	for k, c := range cs {
		out[k] = CanvasPair{
			Correspondence: c,
			PointsI:        ToCanvas(make([]geometry.Point2D, 0, c.Len()), c.PointsI, TileOrigin(x, c.Edge.I)),
			PointsJ:        ToCanvas(make([]geometry.Point2D, 0, c.Len()), c.PointsJ, TileOrigin(x, c.Edge.J)),
		}
	}
	return out
}

// pairDistance is the summed canvas distance of one correspondence with
// tile origins oi and oj. It does not allocate.
func pairDistance(c *match.Correspondence, oi, oj geometry.Point2D) float64 {
	dx := oi.X - oj.X
	dy := oi.Y - oj.Y
	var sum float64
	for k := range c.PointsI {
		pi, pj := c.PointsI[k], c.PointsJ[k]
		ex := pi.X - pj.X + dx
		ey := pi.Y - pj.Y + dy
		sum += math.Sqrt(ex*ex + ey*ey)
	}
	return sum
}

// TotalDistance is the registration objective: the sum over all pairs of
// the canvas distance between matched points for origin vector x.
func TotalDistance(cs []match.Correspondence, x []float64) float64 {
	var total float64
	for k := range cs {
		c := &cs[k]
		total += pairDistance(c, TileOrigin(x, c.Edge.I), TileOrigin(x, c.Edge.J))
	}
	return total
}
