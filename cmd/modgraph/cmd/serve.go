package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modgraph"
	"github.com/GoCodeAlone/modgraph/config"
	"github.com/GoCodeAlone/modgraph/server"
	"github.com/GoCodeAlone/modgraph/surrogate"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the modules API over HTTP",
		Long: `Serve exposes the configured storage backend as a JSON API:
/api/modules, /api/graph, /api/statistics, /api/metadata, /api/export.csv
and /health. POST /api/run executes a surrogate in place of a module; the
registered surrogates are listed on /api/surrogates.
Prometheus metrics are served on /metrics unless server.disable_metrics is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger := newLogger(cfg, cmd.ErrOrStderr())
			gw, closeGateway, err := openGateway(cfg, logger)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeGateway(); err != nil {
					logger.Warn("Closing storage failed", "error", err)
				}
			}()

			srv, err := server.New(gw, serverOptions(cfg, logger)...)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Run(ctx, cfg.Server)
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "Override server.host")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Override server.port")
	return cmd
}

func serverOptions(cfg *config.Config, logger modgraph.Logger) []server.Option {
	emitter := modgraph.NewEmitter(logger)
	_ = emitter.RegisterObserver(eventLogger(logger))

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithSubject(emitter),
		server.WithSurrogates(surrogate.Defaults(cfg.Surrogate, surrogate.WithLogger(logger))),
	}
	if !cfg.Server.DisableMetrics {
		opts = append(opts, server.WithMetrics(server.NewMetrics()))
	}
	return opts
}

// eventLogger writes every change event to the debug log.
func eventLogger(logger modgraph.Logger) modgraph.Observer {
	return modgraph.NewFunctionalObserver("modgraph.cli.events", func(_ context.Context, event modgraph.CloudEvent) error {
		logger.Debug("Event", "type", event.Type(), "source", event.Source(), "id", event.ID())
		return nil
	})
}
