package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"TutorBoard/internal/board"
	"TutorBoard/internal/export"
)

func newExportCmd() *cobra.Command {
	var (
		format        string
		width, height int
	)
	cmd := &cobra.Command{
		Use:   "export <board.json> <output>",
		Short: "Render a saved board to png, svg, pdf or json without opening a window",
		Long: `Render a saved board to png, svg, pdf or json without opening a window.

The format comes from the output file's extension unless --format is given.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			logger := loggerFromContext(cmd.Context())
			in, out := args[0], args[1]

			if format == "" {
				format = filepath.Ext(out)
			}
			f, err := export.ParseFormat(format)
			if err != nil {
				return fail("export", err)
			}

			data, err := os.ReadFile(in)
			if err != nil {
				return fail("export", err)
			}
			cfg.Render.Backend = "immediate"
			cfg.Board.Grid = false
			sched := &board.ManualScheduler{}
			c := board.New(float64(width), float64(height),
				board.WithConfig(cfg),
				board.WithScheduler(sched),
				board.WithLogger(logger),
			)
			defer c.Close()
			if err := c.Import(data); err != nil {
				return fail("export", fmt.Errorf("%s: %w", in, err))
			}
			sched.Flush()

			p := newProgress(logger)
			encoded, err := c.ExportAs(f)
			if err != nil {
				return fail("export", err)
			}
			if err := os.WriteFile(out, encoded, 0o644); err != nil {
				return fail("export", err)
			}
			p.done(fmt.Sprintf("Exported %s to %s", in, out))
			return nil
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "", "output format: png, svg, pdf or json")
	cmd.Flags().IntVar(&width, "width", 1280, "surface width in pixels")
	cmd.Flags().IntVar(&height, "height", 720, "surface height in pixels")
	return cmd
}
