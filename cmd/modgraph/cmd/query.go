package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modgraph"
)

func newValidateCommand(opts *globalOptions) *cobra.Command {
	var strict bool
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load every module and report dangling dependencies",
		Long: `Validate loads all modules from the configured backend, which for the yaml
backend checks every file against the module schema and rejects duplicate
names. Dependencies on modules that do not exist are reported as warnings,
or as errors with --strict.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer func() { _ = sess.close() }()

			out := cmd.OutOrStdout()
			graph := modgraph.BuildGraph(sess.store.Modules(), nil)
			dangling := 0
			for _, node := range graph.Nodes {
				for _, missing := range node.Missing {
					dangling++
					fmt.Fprintf(out, "warning: module %s depends on unknown module %s\n", node.ID, missing)
				}
			}
			fmt.Fprintf(out, "%d modules, %d edges, %d dangling dependencies\n", len(graph.Nodes), len(graph.Edges), dangling)
			if strict && dangling > 0 {
				return fmt.Errorf("%w: %d dangling dependencies", modgraph.ErrValidation, dangling)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when a dependency names an unknown module")
	return cmd
}

func newExportCommand(opts *globalOptions) *cobra.Command {
	var (
		query    string
		statuses []string
		filters  []string
		output   string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the filtered modules as CSV",
		Example: `  modgraph export --status placeholder
  modgraph export --query billing --filter "version:>=1.0.0" -o modules.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer func() { _ = sess.close() }()

			if err := applyView(sess.store, query, statuses, filters); err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			return sess.store.ExportFiltered(w)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Free text search")
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Only these statuses")
	cmd.Flags().StringArrayVarP(&filters, "filter", "f", nil, "Structured filter type:value (repeatable)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newGraphCommand(opts *globalOptions) *cobra.Command {
	var statuses []string
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Print the dependency graph as JSON nodes and edges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer func() { _ = sess.close() }()

			parsed, err := parseStatuses(statuses)
			if err != nil {
				return err
			}
			sess.store.SetStatusFilter(parsed...)
			return writeIndented(cmd.OutOrStdout(), sess.store.Graph())
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Only nodes with these statuses")
	return cmd
}

func newStatsCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print module statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer func() { _ = sess.close() }()
			return writeIndented(cmd.OutOrStdout(), sess.store.Stats())
		},
	}
}

func newMetadataCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "metadata",
		Short: "Print dependents, dependency counts and levels as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := opts.openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer func() { _ = sess.close() }()
			return writeIndented(cmd.OutOrStdout(), sess.store.Metadata())
		},
	}
}

func applyView(store *modgraph.Store, query string, statuses, filters []string) error {
	parsedStatuses, err := parseStatuses(statuses)
	if err != nil {
		return err
	}
	parsedFilters, err := parseFilters(filters)
	if err != nil {
		return err
	}
	store.SetSearchQuery(query)
	store.SetStatusFilter(parsedStatuses...)
	for _, f := range parsedFilters {
		store.AddFilter(f)
	}
	return nil
}

func writeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
