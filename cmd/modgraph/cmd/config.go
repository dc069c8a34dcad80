package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/GoCodeAlone/modgraph/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the configuration schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(newConfigSampleCommand())
	cmd.AddCommand(newConfigDescribeCommand())
	return cmd
}

func newConfigSampleCommand() *cobra.Command {
	var (
		format string
		output string
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print a config file holding every default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if output != "" {
				if err := config.SaveSample(&config.Config{}, format, output); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Sample configuration written to %s\n", output)
				return nil
			}
			data, err := config.GenerateSample(&config.Config{}, format)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "yaml", "yaml, json or toml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to this file instead of stdout")
	return cmd
}

func newConfigDescribeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "describe",
		Short: "List every setting with its environment variable and default",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := config.Describe(&config.Config{})
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SETTING\tENVIRONMENT\tDEFAULT\tREQUIRED\tDESCRIPTION")
			for _, d := range docs {
				env := ""
				if d.Env != "" {
					env = EnvPrefix + "_" + d.Env
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", d.Path, env, d.Default, d.Required, d.Description)
			}
			return tw.Flush()
		},
	}
}
