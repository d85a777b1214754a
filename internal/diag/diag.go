// Package diag collects recoverable conditions met during a stitching run
// so they can be reported together next to a successful result.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"gridstitch/internal/grid"
)

// Kind classifies a recoverable condition.
type Kind int

const (
	// MatchFailed: the feature matcher returned an error for an edge.
	MatchFailed Kind = iota
	// NoCorrespondence: an edge kept no pair after outlier filtering and was dropped.
	NoCorrespondence
	// FloatingTile: tiles with no surviving edge keep their lattice position.
	FloatingTile
	// NonConvergence: the optimizer stopped on a limit; the best iterate is used.
	NonConvergence
)

func (k Kind) String() string {
	switch k {
	case MatchFailed:
		return "match-failed"
	case NoCorrespondence:
		return "no-correspondence"
	case FloatingTile:
		return "floating-tile"
	case NonConvergence:
		return "non-convergence"
	default:
		return "unknown"
	}
}

// Warning is one recoverable condition.
type Warning struct {
	Kind    Kind
	Edge    *grid.Edge // set for edge-scoped warnings
	Tiles   []int      // set for FloatingTile
	Message string
}

func (w Warning) String() string {
	var b strings.Builder
	b.WriteString(w.Kind.String())
	if w.Edge != nil {
		fmt.Fprintf(&b, " %s", w.Edge)
	}
	if len(w.Tiles) > 0 {
		fmt.Fprintf(&b, " tiles %v", w.Tiles)
	}
	if w.Message != "" {
		b.WriteString(": ")
		b.WriteString(w.Message)
	}
	return b.String()
}

// Report aggregates warnings in the order they were raised.
type Report struct {
	Warnings []Warning
}

// Add appends warnings to the report.
func (r *Report) Add(w ...Warning) {
	r.Warnings = append(r.Warnings, w...)
}

// Len returns the number of warnings.
func (r *Report) Len() int { return len(r.Warnings) }

// ByKind returns the warnings of one kind.
func (r *Report) ByKind(k Kind) []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		if w.Kind == k {
			out = append(out, w)
		}
	}
	return out
}

// Counts returns the number of warnings per kind, sorted by kind.
func (r *Report) Counts() []KindCount {
	m := map[Kind]int{}
	for _, w := range r.Warnings {
		m[w.Kind]++
	}
	out := make([]KindCount, 0, len(m))
	for k, n := range m {
		out = append(out, KindCount{Kind: k, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// KindCount is one row of Report.Counts.
type KindCount struct {
	Kind  Kind
	Count int
}
