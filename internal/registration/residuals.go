package registration

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"gridstitch/internal/grid"
	"gridstitch/internal/match"
)

// EdgeResidual summarizes the remaining canvas distance of one edge.
type EdgeResidual struct {
	Edge  grid.Edge
	Pairs int
	Mean  float64
	Max   float64
	Std   float64
}

// Residuals returns per-edge distance statistics for origin vector x, in
// correspondence order, and the mean distance over all pairs.
func Residuals(cs []match.Correspondence, x []float64) ([]EdgeResidual, float64) {
	out := make([]EdgeResidual, 0, len(cs))
	var all []float64
	for _, pair := range Project(cs, x) {
		d := make([]float64, len(pair.PointsI))
		for k := range d {
			d[k] = pair.PointsI[k].Distance(pair.PointsJ[k])
		}
		r := EdgeResidual{Edge: pair.Correspondence.Edge, Pairs: len(d)}
		switch {
		case len(d) > 1:
			r.Mean, r.Std = stat.MeanStdDev(d, nil)
			r.Max = floats.Max(d)
		case len(d) == 1:
			r.Mean, r.Max = d[0], d[0]
		}
		out = append(out, r)
		all = append(all, d...)
	}
	if len(all) == 0 {
		return out, 0
	}
	return out, stat.Mean(all, nil)
}
