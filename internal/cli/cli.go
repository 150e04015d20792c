// Package cli implements the tutorboard command line: hosting a board,
// joining one over the LAN and exporting saved boards without a window.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/charmbracelet/log"
	"github.com/gogpu/gg"
	"github.com/spf13/cobra"

	"TutorBoard/internal/config"
)

var version = "dev"

// Execute runs the command line with args and returns the first error.
func Execute(args []string) error {
	root := newRootCmd()
	root.SetArgs(args)
	return root.ExecuteContext(context.Background())
}

func newRootCmd() *cobra.Command {
	var (
		verbose    bool
		configPath string
	)
	root := &cobra.Command{
		Use:          "tutorboard",
		Short:        "TutorBoard is a shared whiteboard for the local network",
		Version:      version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				configPath = config.DefaultPath()
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			level := cfg.LogLevel()
			if verbose {
				level = log.DebugLevel
			}
			logger := newLogger(os.Stderr, level)
			gg.SetLogger(slog.New(logger.WithPrefix("gg")))
			logger.Debug("config loaded", "file", configPath, "backend", cfg.Render.Backend)

			ctx := withConfig(withLogger(cmd.Context(), logger), cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default "+config.DefaultPath()+")")

	root.AddCommand(newHostCmd())
	root.AddCommand(newJoinCmd())
	root.AddCommand(newExportCmd())
	return root
}

func fail(op string, err error) error {
	return fmt.Errorf("%s: %w", op, err)
}
