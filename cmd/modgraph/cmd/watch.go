package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modgraph"
	"github.com/GoCodeAlone/modgraph/resync"
	"github.com/GoCodeAlone/modgraph/watch"
)

// ErrNothingToWatch is returned when neither file watching nor a resync
// schedule is configured.
var ErrNothingToWatch = errors.New("nothing to watch: set watch.enabled or resync.schedule")

func newWatchCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep the modules loaded and print a summary after every reload",
		Long: `Watch loads the modules and reloads them when module files change
(watch.enabled, yaml backend only) or on the resync.schedule cron expression.
A one-line summary with dangling dependency warnings is printed after each load.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			emitter := modgraph.NewEmitter(nil)
			sess, err := opts.openStore(cmd.Context(), cmd, modgraph.WithSubject(emitter))
			if err != nil {
				return err
			}
			defer func() { _ = sess.close() }()

			cfg := sess.cfg
			if !cfg.Watch.Enabled && cfg.Resync.Schedule == "" {
				return ErrNothingToWatch
			}

			printSummary(out, sess.store)
			_ = emitter.RegisterObserver(modgraph.NewFunctionalObserver("modgraph.cli.summary",
				func(context.Context, modgraph.CloudEvent) error {
					printSummary(out, sess.store)
					return nil
				}), modgraph.EventTypeModulesLoaded)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			// summaries are printed from observers, keep them in order
			ctx = modgraph.WithSynchronousNotification(ctx)

			if cfg.Resync.Schedule != "" {
				r, err := resync.New(cfg.Resync.Schedule, sess.store.Load, resync.WithLogger(sess.logger))
				if err != nil {
					return err
				}
				if err := r.Start(ctx); err != nil {
					return err
				}
				defer func() { _ = r.Stop() }()
			}

			if !cfg.Watch.Enabled {
				<-ctx.Done()
				return nil
			}
			w, err := watch.New(cfg.Storage.ModulesDir, watch.StoreReloader(sess.store),
				watch.WithDebounce(cfg.Watch.Debounce),
				watch.WithLogger(sess.logger),
			)
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
	}
	return cmd
}

func printSummary(w io.Writer, store *modgraph.Store) {
	stats := store.Stats()
	parts := make([]string, 0, len(stats.ByStatus))
	for _, status := range modgraph.AllStatuses() {
		parts = append(parts, fmt.Sprintf("%s=%d", status, stats.ByStatus[status]))
	}
	fmt.Fprintf(w, "%d modules (%s), %d dependencies, %d dangling\n",
		stats.Total, strings.Join(parts, " "), stats.DependencyCount, stats.DanglingCount)
}
