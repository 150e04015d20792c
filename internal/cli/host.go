package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"TutorBoard/internal/board"
	"TutorBoard/internal/config"
	tbnet "TutorBoard/internal/net"
	"TutorBoard/internal/ui"
)

const appID = "io.tutorboard.app"

// newDesktopBoard creates the fyne app and a controller whose frames run on
// fyne's main goroutine.
func newDesktopBoard(cfg config.Config, logger *log.Logger) (fyne.App, *ui.FrameScheduler, *board.Controller) {
	a := app.NewWithID(appID)
	sched := ui.NewFrameScheduler()
	c := board.New(1024, 768,
		board.WithConfig(cfg),
		board.WithScheduler(sched),
		board.WithLogger(logger),
	)
	return a, sched, c
}

func newHostCmd() *cobra.Command {
	var (
		port        int
		name        string
		noAdvertise bool
	)
	cmd := &cobra.Command{
		Use:   "host",
		Short: "Host a board that others on the LAN can join",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			logger := loggerFromContext(cmd.Context())
			if cmd.Flags().Changed("port") {
				cfg.Net.Port = port
			}
			if cmd.Flags().Changed("name") {
				cfg.Net.Name = name
			}
			if noAdvertise {
				cfg.Net.Advertise = false
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			a, sched, c := newDesktopBoard(cfg, logger)
			defer c.Close()

			hub := tbnet.NewHub(c,
				tbnet.WithDispatcher(fyne.Do),
				tbnet.WithName(cfg.Net.Name),
				tbnet.WithLogger(logger),
			)
			c.SetCollaborator(hub)

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			serveErr := make(chan error, 1)
			go func() { serveErr <- hub.ListenAndServe(ctx, fmt.Sprintf(":%d", cfg.Net.Port)) }()

			// a port already in use fails fast; don't open a window for it
			select {
			case err := <-serveErr:
				return fail("host", err)
			case <-time.After(200 * time.Millisecond):
			}

			if cfg.Net.Advertise {
				server, err := tbnet.Advertise(cfg.Net.Name, cfg.Net.Port)
				if err != nil {
					logger.Warn("LAN discovery disabled", "err", err)
				} else {
					defer server.Shutdown()
				}
			}

			link := tbnet.ShareLink(tbnet.OutgoingIP(), cfg.Net.Port)
			logger.Info("hosting board", "link", link)
			ui.RunApp(a, c, sched, ui.Options{Title: "TutorBoard (host)", ShareLink: link, Logger: logger})

			cancel()
			if err := <-serveErr; err != nil && !errors.Is(err, context.Canceled) {
				return fail("host", err)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", config.Default().Net.Port, "port to listen on")
	cmd.Flags().StringVar(&name, "name", "", "name shown to guests and on the LAN")
	cmd.Flags().BoolVar(&noAdvertise, "no-advertise", false, "do not announce the board over mDNS")
	return cmd
}
