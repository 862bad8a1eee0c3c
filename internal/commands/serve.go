package commands

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ledgerview/ledgerview/internal/web"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web frontend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				a.cfg.Server.Addr = addr
			}

			pub := a.publisher()
			defer pub.Close()

			srv := web.New(web.Options{
				Store:    a.store,
				Uploader: a.uploader(pub),
				Metrics:  a.metrics,
				Logger:   &a.log,
				Location: a.loc,
			})

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a.log.Info().Str("api", a.client.BaseURL()).Msg("starting web frontend")
			return srv.ListenAndServe(ctx, a.cfg.Server.Addr, a.cfg.Server.ShutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")

	return cmd
}
