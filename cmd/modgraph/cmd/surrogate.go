package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modgraph"
	"github.com/GoCodeAlone/modgraph/surrogate"
)

func newSurrogateCommand(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "surrogate",
		Short: "Run placeholder implementations in place of modules",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the registered surrogate types",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), surrogate.Defaults(cfg.Surrogate).List())
		},
	})
	cmd.AddCommand(newSurrogateRunCommand(opts))
	return cmd
}

func newSurrogateRunCommand(opts *globalOptions) *cobra.Command {
	var (
		kind   string
		inputs []string
	)
	cmd := &cobra.Command{
		Use:   "run MODULE",
		Short: "Run a surrogate for MODULE and print the result as JSON",
		Long: `Run feeds the module's inputs to a surrogate and prints what it returns.
Without --input every declared input gets a "dummy-<name>" value.`,
		Example: `  modgraph surrogate run Parser
  modgraph surrogate run Parser --type mock_llm --input RawText=hello`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseInputs(inputs)
			if err != nil {
				return err
			}
			sess, err := opts.openStore(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			defer func() { _ = sess.close() }()

			m, ok := sess.store.Get(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", modgraph.ErrNotFound, args[0])
			}
			reg := surrogate.Defaults(sess.cfg.Surrogate, surrogate.WithLogger(sess.logger))
			result, err := reg.Execute(cmd.Context(), m, kind, values)
			if err != nil {
				return err
			}
			return writeIndented(cmd.OutOrStdout(), result)
		},
	}
	cmd.Flags().StringVarP(&kind, "type", "t", surrogate.DefaultType, "Surrogate type")
	cmd.Flags().StringArrayVarP(&inputs, "input", "i", nil, "Input as key=value, repeatable")
	return cmd
}

func parseInputs(raw []string) (map[string]any, error) {
	values := make(map[string]any, len(raw))
	for _, kv := range raw {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("%w: input %q is not key=value", modgraph.ErrValidation, kv)
		}
		values[strings.TrimSpace(key)] = value
	}
	return values, nil
}
