package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modgraph"
)

// ErrNothingSelected is returned when a bulk command matches no module.
var ErrNothingSelected = errors.New("no modules selected")

type bulkSelection struct {
	visible  bool
	query    string
	statuses []string
	filters  []string
}

func (b *bulkSelection) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&b.visible, "visible", false, "Select every module matching --query, --status and --filter")
	cmd.Flags().StringVarP(&b.query, "query", "q", "", "Free text search used with --visible")
	cmd.Flags().StringSliceVarP(&b.statuses, "status", "s", nil, "Status filter used with --visible")
	cmd.Flags().StringArrayVarP(&b.filters, "filter", "f", nil, "Structured filter type:value used with --visible")
}

// apply puts the store into multi-select mode and selects the named modules,
// or everything visible under the view flags.
func (b *bulkSelection) apply(store *modgraph.Store, names []string) error {
	store.SetMultiSelect(true)
	if b.visible {
		if err := applyView(store, b.query, b.statuses, b.filters); err != nil {
			return err
		}
		store.SelectAllVisible()
	}
	for _, name := range names {
		if store.IsSelected(name) {
			continue
		}
		if _, err := store.ToggleSelection(name); err != nil {
			return err
		}
	}
	if len(store.SelectedNames()) == 0 {
		return ErrNothingSelected
	}
	return nil
}

func newBulkCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bulk",
		Short: "Apply one change to many modules",
		Long: `Bulk commands run one backend call per selected module concurrently and
wait for all of them. Modules that failed are listed so the command can be
retried for just those names.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newBulkStatusCommand(opts))
	cmd.AddCommand(newBulkDeleteCommand(opts))
	return cmd
}

func newBulkStatusCommand(opts *globalOptions) *cobra.Command {
	sel := &bulkSelection{}
	cmd := &cobra.Command{
		Use:   "status <status> [module...]",
		Short: "Set the status of the selected modules",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			status, err := modgraph.ParseStatus(args[0])
			if err != nil {
				return err
			}
			sess, err := opts.openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer func() { _ = sess.close() }()

			if err := sel.apply(sess.store, args[1:]); err != nil {
				return err
			}
			result, err := sess.store.BulkUpdateStatus(cmd.Context(), status)
			reportBulk(cmd, "updated", result)
			return err
		},
	}
	sel.register(cmd)
	return cmd
}

func newBulkDeleteCommand(opts *globalOptions) *cobra.Command {
	sel := &bulkSelection{}
	cmd := &cobra.Command{
		Use:   "delete [module...]",
		Short: "Delete the selected modules",
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer func() { _ = sess.close() }()

			if err := sel.apply(sess.store, args); err != nil {
				return err
			}
			result, err := sess.store.BulkDeleteSelected(cmd.Context())
			reportBulk(cmd, "deleted", result)
			return err
		},
	}
	sel.register(cmd)
	return cmd
}

func reportBulk(cmd *cobra.Command, verb string, result modgraph.BulkResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d of %d modules %s\n", result.Succeeded, result.Total, verb)
	for _, name := range result.FailedNames {
		fmt.Fprintf(out, "failed: %s\n", name)
	}
}
