package registration

import (
	"fmt"
	"strings"
	"time"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"gridstitch/internal/diag"
	"gridstitch/internal/match"
	"gridstitch/pkg/geometry"
)

// Method names the quasi-Newton (or derivative-free) minimizer.
type Method string

const (
	BFGS       Method = "bfgs"
	LBFGS      Method = "lbfgs"
	NelderMead Method = "neldermead"
)

// ParseMethod parses an optimizer name.
func ParseMethod(s string) (Method, error) {
	switch m := Method(strings.ToLower(s)); m {
	case BFGS, LBFGS, NelderMead:
		return m, nil
	default:
		return "", fmt.Errorf("unknown optimizer method %q", s)
	}
}

// ProgressFunc receives the total distance after every optimizer iteration.
// It cannot influence the optimization; a panic inside it is swallowed.
type ProgressFunc func(iteration int, distance float64)

// Options configures Solve.
type Options struct {
	Method            Method
	MaxIterations     int           // major iteration cap; 0 means no cap
	GradientTolerance float64       // stop when the gradient norm falls below this
	FunctionTolerance float64       // stop when f stalls by less than this over 20 iterations
	Runtime           time.Duration // wall-clock limit; 0 means none
	Step              float64       // finite-difference step for the numerical gradient
	Restarts          int           // extra runs after a line search breakdown
	Progress          ProgressFunc
}

// DefaultOptions returns the default solver configuration.
func DefaultOptions() Options {
	return Options{
		Method:            BFGS,
		MaxIterations:     2000,
		GradientTolerance: 1e-6,
		FunctionTolerance: 1e-9,
		Step:              1e-4,
		Restarts:          3,
	}
}

// Solution is the outcome of Solve.
type Solution struct {
	Origins         []float64 // final flattened origin vector
	Initial         []float64 // the initial guess, unchanged
	InitialDistance float64
	Distance        float64
	Iterations      int
	Evaluations     int
	Status          string
	Converged       bool
	Pinned          []int
	Warnings        []diag.Warning
}

// layout maps tiles onto the decision vector. Pinned tiles have no slot
// and read their origin from the initial guess.
type layout struct {
	initial []float64
	slot    []int // slot[t] is the x index of tile t, or -1 when pinned
	free    int
}

func newLayout(x0 []float64, pinned []int) (*layout, error) {
	n := len(x0) / 2
	l := &layout{initial: x0, slot: make([]int, n)}
	for _, t := range pinned {
		if t < 0 || t >= n {
			return nil, fmt.Errorf("pinned tile %d out of range [0,%d)", t, n)
		}
		l.slot[t] = -1
	}
	for t := range l.slot {
		if l.slot[t] == 0 {
			l.slot[t] = 2 * l.free
			l.free++
		}
	}
	return l, nil
}

func (l *layout) origin(x []float64, t int) (float64, float64) {
	if s := l.slot[t]; s >= 0 {
		return x[s], x[s+1]
	}
	return l.initial[2*t], l.initial[2*t+1]
}

// pack extracts the free coordinates from a full origin vector.
func (l *layout) pack(full []float64) []float64 {
	x := make([]float64, 2*l.free)
	for t, s := range l.slot {
		if s >= 0 {
			x[s], x[s+1] = full[2*t], full[2*t+1]
		}
	}
	return x
}

// unpack writes the free coordinates back into a copy of the initial guess.
func (l *layout) unpack(x []float64) []float64 {
	full := append([]float64(nil), l.initial...)
	for t, s := range l.slot {
		if s >= 0 {
			full[2*t], full[2*t+1] = x[s], x[s+1]
		}
	}
	return full
}

// objective evaluates the total distance over the free coordinates. It holds
// no mutable state, so evaluations are reentrant.
type objective struct {
	cs     []match.Correspondence
	layout *layout
}

func (o *objective) value(x []float64) float64 {
	var total float64
	for k := range o.cs {
		c := &o.cs[k]
		xi, yi := o.layout.origin(x, c.Edge.I)
		xj, yj := o.layout.origin(x, c.Edge.J)
		total += pairDistance(c, geometry.Point2D{X: xi, Y: yi}, geometry.Point2D{X: xj, Y: yj})
	}
	return total
}

// Solve finds the tile origins minimizing TotalDistance, starting from x0.
// Pinned tiles keep their x0 position. The returned Solution always holds a
// usable origin vector; optimizer limits are reported as a NonConvergence
// warning rather than an error.
func Solve(cs []match.Correspondence, x0 []float64, pinned []int, opts Options) (*Solution, error) {
	if len(x0)%2 != 0 {
		return nil, fmt.Errorf("origin vector has odd length %d", len(x0))
	}
	for _, c := range cs {
		if min(c.Edge.I, c.Edge.J) < 0 || 2*max(c.Edge.I, c.Edge.J)+1 >= len(x0) {
			return nil, fmt.Errorf("edge %s refers to a tile outside the origin vector", c.Edge)
		}
	}
	l, err := newLayout(x0, pinned)
	if err != nil {
		return nil, err
	}

	sol := &Solution{
		Initial: append([]float64(nil), x0...),
		Pinned:  append([]int(nil), pinned...),
	}
	sol.InitialDistance = TotalDistance(cs, x0)

	if len(cs) == 0 || l.free == 0 {
		sol.Origins = append([]float64(nil), x0...)
		sol.Distance = sol.InitialDistance
		sol.Status = "NoConstraints"
		sol.Converged = true
		return sol, nil
	}

	method, err := newMethod(opts.Method)
	if err != nil {
		return nil, err
	}

	obj := &objective{cs: cs, layout: l}
	step := opts.Step
	if step <= 0 {
		step = DefaultOptions().Step
	}
	fdSettings := &fd.Settings{Formula: fd.Central, Step: step}

	problem := optimize.Problem{
		Func: obj.value,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, obj.value, x, fdSettings)
		},
	}
	best := l.pack(x0)
	bestF := sol.InitialDistance
	var (
		status = optimize.RuntimeLimit
		runErr error
	)
	// A line search breakdown near a kink of the objective restarts the
	// method from the best point with a fresh Hessian estimate.
	started := time.Now()
	for run := 0; run <= opts.Restarts; run++ {
		var runtime time.Duration
		if opts.Runtime > 0 {
			runtime = opts.Runtime - time.Since(started)
			if runtime <= 0 {
				break
			}
		}
		settings := &optimize.Settings{
			MajorIterations:   remaining(opts.MaxIterations, sol.Iterations),
			GradientThreshold: opts.GradientTolerance,
			Runtime:           runtime,
			Converger: &optimize.FunctionConverge{
				Absolute:   opts.FunctionTolerance,
				Iterations: 20,
			},
			Recorder:   &progressRecorder{fn: opts.Progress, offset: sol.Iterations},
			Concurrent: 1,
		}

		result, err := optimize.Minimize(problem, best, settings, method)
		if result == nil {
			return nil, fmt.Errorf("optimize: %w", err)
		}
		sol.Iterations += result.Stats.MajorIterations
		sol.Evaluations += result.Stats.FuncEvaluations
		status, runErr = result.Status, err

		improved := bestF - result.F
		if result.F <= bestF {
			best, bestF = result.X, result.F
		}
		if status != optimize.Failure || !(improved > opts.FunctionTolerance) {
			break
		}
		if opts.MaxIterations > 0 && sol.Iterations >= opts.MaxIterations {
			break
		}
		method, _ = newMethod(opts.Method)
	}

	sol.Origins = l.unpack(best)
	sol.Distance = bestF
	sol.Status = status.String()
	sol.Converged = runErr == nil && converged(status)

	if !sol.Converged {
		msg := fmt.Sprintf("optimizer stopped with status %s after %d iterations", status, sol.Iterations)
		if runErr != nil {
			msg += ": " + runErr.Error()
		}
		sol.Warnings = append(sol.Warnings, diag.Warning{Kind: diag.NonConvergence, Message: msg})
	}
	return sol, nil
}

// remaining returns the iteration budget left after used iterations; 0 means no cap.
func remaining(limit, used int) int {
	if limit <= 0 {
		return 0
	}
	return max(limit-used, 1)
}

func newMethod(m Method) (optimize.Method, error) {
	switch m {
	case BFGS, "":
		return &optimize.BFGS{}, nil
	case LBFGS:
		return &optimize.LBFGS{}, nil
	case NelderMead:
		return &optimize.NelderMead{}, nil
	default:
		return nil, fmt.Errorf("unknown optimizer method %q", m)
	}
}

func converged(s optimize.Status) bool {
	switch s {
	case optimize.Success, optimize.FunctionThreshold, optimize.FunctionConvergence,
		optimize.GradientThreshold, optimize.StepConvergence, optimize.MethodConverge:
		return true
	default:
		return false
	}
}

// progressRecorder forwards major iterations to a ProgressFunc.
type progressRecorder struct {
	fn     ProgressFunc
	offset int // iterations completed by earlier runs
}

func (r *progressRecorder) Init() error { return nil }

func (r *progressRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	if r.fn == nil || op&optimize.MajorIteration == 0 {
		return nil
	}
	r.report(r.offset+stats.MajorIterations, loc.F)
	return nil
}

func (r *progressRecorder) report(iter int, f float64) {
	defer func() { _ = recover() }()
	r.fn(iter, f)
}
