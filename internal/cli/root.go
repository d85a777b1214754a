// Package cli implements the gridstitch command-line interface.
//
// Commands:
//   - stitch: register a grid of tiles and write the mosaic
//   - compose: re-composite a mosaic from a saved positions file
//
// All commands accept --verbose (-v) for debug logging, which includes
// per-iteration optimizer progress. The logger travels in the command
// context.
package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"gridstitch/internal/version"
)

// Execute runs the gridstitch CLI.
func Execute() error {
	return newRootCmd().ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:          "gridstitch",
		Short:        "gridstitch registers overlapping image tiles into one mosaic",
		Long:         `gridstitch matches features between neighbouring tiles of a rows x cols grid, solves for every tile origin at once and composites the result.`,
		Version:      version.Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}
			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(version.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newStitchCmd())
	root.AddCommand(newComposeCmd())
	return root
}
