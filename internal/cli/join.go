package cli

import (
	"context"
	"errors"
	"time"

	"fyne.io/fyne/v2"
	"github.com/spf13/cobra"

	tbnet "TutorBoard/internal/net"
	"TutorBoard/internal/ui"
)

var errNoHosts = errors.New("no boards found on the LAN")

func newJoinCmd() *cobra.Command {
	var (
		name    string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "join [tutorboard://ip:port]",
		Short: "Join a hosted board; without a link, the first board found on the LAN",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFromContext(cmd.Context())
			logger := loggerFromContext(cmd.Context())
			if name == "" {
				name = cfg.Net.Name
			}

			var link string
			if len(args) == 1 {
				link = args[0]
			} else {
				hosts, err := tbnet.Browse(cmd.Context(), timeout)
				if err != nil {
					logger.Warn("LAN browse failed", "err", err)
				}
				if len(hosts) == 0 {
					return fail("join", errNoHosts)
				}
				for _, h := range hosts {
					logger.Info("found board", "name", h.Name, "addr", h.Addr)
				}
				link = tbnet.LinkScheme + hosts[0].Addr
			}

			a, sched, c := newDesktopBoard(cfg, logger)
			defer c.Close()

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			client, err := tbnet.Dial(ctx, link, c,
				tbnet.WithDispatcher(fyne.Do),
				tbnet.WithName(name),
				tbnet.WithLogger(logger),
			)
			cancel()
			if err != nil {
				return fail("join", err)
			}
			defer client.Close()
			c.SetCollaborator(client)
			go func() {
				<-client.Done()
				logger.Warn("disconnected from host", "link", link)
			}()

			logger.Info("joined board", "link", link)
			ui.RunApp(a, c, sched, ui.Options{Title: "TutorBoard", ShareLink: link, Logger: logger})
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "name shown next to your cursor")
	cmd.Flags().DurationVar(&timeout, "timeout", 5*time.Second, "how long to look for and connect to the host")
	return cmd
}
