package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"gridstitch/internal/mosaic"
	"gridstitch/internal/project"
	"gridstitch/internal/stitch"
)

func newComposeCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "compose [positions.yaml]",
		Short: "Composite a mosaic from saved tile positions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := loggerFromContext(cmd.Context())
			prog := newProgress(logger)

			p, err := project.Load(args[0])
			if err != nil {
				return err
			}
			m, err := stitch.Compose(p, args[0])
			if err != nil {
				return err
			}
			if err := mosaic.Save(m.Image, output); err != nil {
				return fmt.Errorf("write mosaic: %w", err)
			}
			b := m.Image.Bounds()
			prog.done(fmt.Sprintf("Composited %d tiles into %s (%dx%d)", len(p.Tiles), output, b.Dx(), b.Dy()))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "mosaic.png", "mosaic output file")
	return cmd
}
