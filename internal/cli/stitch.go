package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"gridstitch/internal/config"
	"gridstitch/internal/match/cvmatch"
	"gridstitch/internal/mosaic"
	"gridstitch/internal/stitch"
)

// stitchOpts holds the command-line flags of the stitch command. Flags that
// were not set leave the config file value in place.
type stitchOpts struct {
	configPath    string
	rows          int
	cols          int
	output        string
	preview       string
	positions     string
	detector      string
	method        string
	maxDelta      float64
	margin        float64
	workers       int
	maxIterations int
	runtime       time.Duration
	residuals     bool // print the per-edge residual table
}

func newStitchCmd() *cobra.Command {
	var opts stitchOpts

	cmd := &cobra.Command{
		Use:   "stitch [tiles...]",
		Short: "Register a grid of tiles and write the mosaic",
		Long: `Stitch registers rows*cols tiles given in row-major order. Arguments may be
files, directories or glob patterns; directories and globs expand to their
image files in lexicographic order.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			applyFlags(&cfg, opts, cmd.Flags().Changed)
			if err := cfg.Validate(true); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}
			return runStitch(cmd.Context(), cmd.OutOrStdout(), args, cfg, opts.residuals)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "TOML config file (default: user config dir, if present)")
	cmd.Flags().IntVar(&opts.rows, "rows", 0, "number of tile rows")
	cmd.Flags().IntVar(&opts.cols, "cols", 0, "number of tile columns")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "mosaic output file (.png, .jpg, .tif, .bmp)")
	cmd.Flags().StringVar(&opts.preview, "preview", "", "write an inspection preview to this file")
	cmd.Flags().StringVar(&opts.positions, "positions", "", "write solved tile positions (YAML) to this file")
	cmd.Flags().StringVar(&opts.detector, "detector", "", "feature detector: sift (default), orb")
	cmd.Flags().StringVar(&opts.method, "method", "", "optimizer: bfgs (default), lbfgs, neldermead")
	cmd.Flags().Float64Var(&opts.maxDelta, "max-delta", 0, "max displacement across an edge in pixels (default 20)")
	cmd.Flags().Float64Var(&opts.margin, "margin", 0, "initial spacing between tiles in pixels (default 20)")
	cmd.Flags().IntVarP(&opts.workers, "workers", "j", 0, "concurrent matcher calls (default 4)")
	cmd.Flags().IntVar(&opts.maxIterations, "max-iterations", 0, "optimizer iteration cap (default 2000)")
	cmd.Flags().DurationVar(&opts.runtime, "timeout", 0, "optimizer wall-clock limit, 0 for none")
	cmd.Flags().BoolVar(&opts.residuals, "residuals", false, "print per-edge residuals")

	return cmd
}

// applyFlags copies every flag the user set over the loaded config.
func applyFlags(cfg *config.Config, o stitchOpts, changed func(string) bool) {
	if changed("rows") {
		cfg.Rows = o.rows
	}
	if changed("cols") {
		cfg.Cols = o.cols
	}
	if changed("output") {
		cfg.Output.Mosaic = o.output
	}
	if changed("preview") {
		cfg.Output.Preview = o.preview
	}
	if changed("positions") {
		cfg.Output.Positions = o.positions
	}
	if changed("detector") {
		cfg.Matcher.Detector = o.detector
	}
	if changed("method") {
		cfg.Optimizer.Method = o.method
	}
	if changed("max-delta") {
		cfg.MaxDelta = o.maxDelta
	}
	if changed("margin") {
		cfg.Margin = o.margin
	}
	if changed("workers") {
		cfg.Matcher.Workers = o.workers
	}
	if changed("max-iterations") {
		cfg.Optimizer.MaxIterations = o.maxIterations
	}
	if changed("timeout") {
		cfg.Optimizer.Runtime.Duration = o.runtime
	}
}

func pipelineOptions(cfg config.Config) stitch.Options {
	return stitch.Options{
		Rows:     cfg.Rows,
		Cols:     cfg.Cols,
		Margin:   cfg.Margin,
		MaxDelta: cfg.MaxDelta,
		Workers:  cfg.Matcher.Workers,
		Solver:   cfg.SolverOptions(),
	}
}

func runStitch(ctx context.Context, out io.Writer, args []string, cfg config.Config, residuals bool) error {
	logger := loggerFromContext(ctx)

	paths, err := mosaic.ExpandPaths(args)
	if err != nil {
		return err
	}
	if n := cfg.Rows * cfg.Cols; len(paths) != n {
		return fmt.Errorf("%dx%d grid needs %d tiles, found %d", cfg.Rows, cfg.Cols, n, len(paths))
	}

	prog := newProgress(logger)
	images, names, err := stitch.LoadTiles(paths)
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Loaded %d tiles", len(images)))

	matcher, err := cvmatch.New(cfg.MatcherOptions())
	if err != nil {
		return err
	}
	defer matcher.Close()

	opts := pipelineOptions(cfg)
	opts.Solver.Progress = func(iter int, distance float64) {
		logger.Debug("optimizer", "iteration", iter, "distance", distance)
	}

	res, err := stitch.NewRunner(matcher, logger).Execute(ctx, images, names, opts)
	if err != nil {
		return err
	}
	for _, w := range res.Report.Warnings {
		logger.Warn(w.String())
	}

	if err := mosaic.Save(res.Mosaic.Image, cfg.Output.Mosaic); err != nil {
		return fmt.Errorf("write mosaic: %w", err)
	}
	logger.Info("wrote mosaic", "path", cfg.Output.Mosaic)

	if cfg.Output.Preview != "" {
		img, err := res.Preview(cfg.PreviewOptions())
		if err != nil {
			return fmt.Errorf("render preview: %w", err)
		}
		if err := mosaic.Save(img, cfg.Output.Preview); err != nil {
			return fmt.Errorf("write preview: %w", err)
		}
		logger.Info("wrote preview", "path", cfg.Output.Preview)
	}

	if cfg.Output.Positions != "" {
		p, err := res.Positions(cfg.Output.Positions, paths, opts.Solver.Method)
		if err != nil {
			return err
		}
		if err := p.Save(cfg.Output.Positions); err != nil {
			return fmt.Errorf("write positions: %w", err)
		}
		logger.Info("wrote positions", "path", cfg.Output.Positions)
	}

	fmt.Fprintln(out, summaryTable(res))
	if len(res.Report.Warnings) > 0 {
		fmt.Fprintln(out, warningsTable(res.Report.Warnings))
	}
	if residuals {
		fmt.Fprintln(out, residualTable(res.Residuals))
	}
	return nil
}
