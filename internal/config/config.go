// Package config provides the TOML run configuration for gridstitch.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"gridstitch/internal/grid"
	"gridstitch/internal/match/cvmatch"
	"gridstitch/internal/mosaic"
	"gridstitch/internal/registration"
)

const configFile = "config.toml"

// Config is the full set of tunables for one stitching run.
type Config struct {
	Rows int `toml:"rows"`
	Cols int `toml:"cols"`

	// Margin is the extra spacing between tiles of the initial lattice.
	Margin float64 `toml:"margin"`
	// MaxDelta bounds the displacement of a pair across its edge, in pixels.
	MaxDelta float64 `toml:"max_delta"`

	Matcher   Matcher   `toml:"matcher"`
	Optimizer Optimizer `toml:"optimizer"`
	Output    Output    `toml:"output"`
}

// Matcher configures feature detection and matching.
type Matcher struct {
	Detector         string  `toml:"detector"`
	MaxMatches       int     `toml:"max_matches"`
	RansacThreshold  float64 `toml:"ransac_threshold"`
	RansacIterations int     `toml:"ransac_iterations"`
	Seed             int64   `toml:"seed"`
	Workers          int     `toml:"workers"`
}

// Optimizer configures the registration solver.
type Optimizer struct {
	Method            string   `toml:"method"`
	MaxIterations     int      `toml:"max_iterations"`
	GradientTolerance float64  `toml:"gradient_tolerance"`
	FunctionTolerance float64  `toml:"function_tolerance"`
	Runtime           Duration `toml:"runtime"`
	Step              float64  `toml:"step"`
	Restarts          int      `toml:"restarts"`
}

// Output selects the artifacts written after a run.
type Output struct {
	Mosaic      string `toml:"mosaic"`
	Preview     string `toml:"preview"`
	Positions   string `toml:"positions"`
	PreviewSize int    `toml:"preview_size"`
	TileBorders bool   `toml:"tile_borders"`
	Labels      bool   `toml:"labels"`
}

// Duration is a time.Duration that decodes from a TOML string such as "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the default configuration. Rows and Cols have no default.
func Default() Config {
	opt := registration.DefaultOptions()
	return Config{
		Margin:   grid.DefaultMargin,
		MaxDelta: registration.DefaultMaxDelta,
		Matcher: Matcher{
			Detector:         string(cvmatch.SIFT),
			RansacThreshold:  3.0,
			RansacIterations: 2000,
			Seed:             1,
			Workers:          4,
		},
		Optimizer: Optimizer{
			Method:            string(opt.Method),
			MaxIterations:     opt.MaxIterations,
			GradientTolerance: opt.GradientTolerance,
			FunctionTolerance: opt.FunctionTolerance,
			Step:              opt.Step,
			Restarts:          opt.Restarts,
		},
		Output: Output{
			Mosaic:      "mosaic.png",
			PreviewSize: 1200,
			TileBorders: true,
			Labels:      true,
		},
	}
}

// DefaultPath returns the per-user config location,
// ~/.config/gridstitch/config.toml on Linux.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(dir, "gridstitch", configFile)
}

// Load reads path on top of the defaults. An empty path tries DefaultPath
// and silently falls back to the defaults when that file does not exist.
func Load(path string) (Config, error) {
	cfg := Default()
	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	md, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		if !explicit && errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown keys %v", path, undecoded)
	}
	return cfg, nil
}

// Validate checks value ranges. Rows and Cols are checked only when checkGrid is set,
// since they usually come from the command line.
func (c Config) Validate(checkGrid bool) error {
	var errs []error
	if checkGrid && (c.Rows < 1 || c.Cols < 1) {
		errs = append(errs, fmt.Errorf("rows and cols must be >= 1, got %dx%d", c.Rows, c.Cols))
	}
	if c.Margin < 0 {
		errs = append(errs, fmt.Errorf("margin must be >= 0, got %v", c.Margin))
	}
	if c.MaxDelta < 0 {
		errs = append(errs, fmt.Errorf("max_delta must be >= 0, got %v", c.MaxDelta))
	}
	if _, err := cvmatch.ParseDetector(c.Matcher.Detector); err != nil {
		errs = append(errs, err)
	}
	if c.Matcher.RansacThreshold <= 0 {
		errs = append(errs, fmt.Errorf("matcher.ransac_threshold must be > 0"))
	}
	if c.Matcher.Workers < 0 {
		errs = append(errs, fmt.Errorf("matcher.workers must be >= 0"))
	}
	if _, err := registration.ParseMethod(c.Optimizer.Method); err != nil {
		errs = append(errs, err)
	}
	if c.Optimizer.MaxIterations < 0 || c.Optimizer.Restarts < 0 {
		errs = append(errs, fmt.Errorf("optimizer limits must be >= 0"))
	}
	if c.Optimizer.Runtime.Duration < 0 {
		errs = append(errs, fmt.Errorf("optimizer.runtime must be >= 0"))
	}
	return errors.Join(errs...)
}

// SolverOptions converts the optimizer section to solver options.
func (c Config) SolverOptions() registration.Options {
	m, _ := registration.ParseMethod(c.Optimizer.Method)
	return registration.Options{
		Method:            m,
		MaxIterations:     c.Optimizer.MaxIterations,
		GradientTolerance: c.Optimizer.GradientTolerance,
		FunctionTolerance: c.Optimizer.FunctionTolerance,
		Runtime:           c.Optimizer.Runtime.Duration,
		Step:              c.Optimizer.Step,
		Restarts:          c.Optimizer.Restarts,
	}
}

// MatcherOptions converts the matcher section to gocv matcher options.
func (c Config) MatcherOptions() cvmatch.Options {
	d, _ := cvmatch.ParseDetector(c.Matcher.Detector)
	opts := cvmatch.DefaultOptions()
	opts.Detector = d
	opts.MaxMatches = c.Matcher.MaxMatches
	opts.Ransac.Threshold = c.Matcher.RansacThreshold
	opts.Ransac.Iterations = c.Matcher.RansacIterations
	opts.Ransac.Seed = c.Matcher.Seed
	return opts
}

// PreviewOptions converts the output section to preview settings.
func (c Config) PreviewOptions() mosaic.PreviewOptions {
	return mosaic.PreviewOptions{
		MaxSize:     c.Output.PreviewSize,
		TileBorders: c.Output.TileBorders,
		Labels:      c.Output.Labels,
	}
}
