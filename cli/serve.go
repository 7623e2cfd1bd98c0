package cli

import (
	"github.com/lguibr/gonwayish/server"
	"github.com/lguibr/gonwayish/utils"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand(opts *options) *cobra.Command {
	var listenAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the field and stream snapshots over HTTP and websocket",
		Long: `serve runs the field and exposes it on:
  GET /snapshot   current state as JSON
  GET /subscribe  websocket pushing a snapshot every broadcast interval
  GET /metrics    Prometheus metrics of the field`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.ListenAddr = listenAddr
			}
			logger, err := newLogger(cfg, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			f, torus, err := startField(cfg, logger)
			if err != nil {
				return err
			}
			srv := server.New(f, torus.Width(), torus.Height(),
				server.WithLogger(logger),
				server.WithGatherer(f.Registry()),
				server.WithBroadcastInterval(cfg.BroadcastInterval),
			)

			g, gctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return srv.ListenAndServe(gctx, cfg.ListenAddr, cfg.ShutdownTimeout)
			})
			g.Go(func() error {
				return runSampler(gctx, cfg, f, logger)
			})

			runErr := g.Wait()
			if err := stopField(f, cfg, logger); err != nil && runErr == nil {
				runErr = err
			}
			return runErr
		},
	}
	cmd.Flags().StringVarP(&listenAddr, "listen", "l", utils.DefaultConfig().ListenAddr, "HTTP listen address")
	return cmd
}
