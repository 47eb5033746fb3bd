package cmd

import (
	"github.com/spf13/cobra"

	"crptapi/internal/version"
)

func newVersionCommand(opts *options, ver version.Info) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printResult(cmd.OutOrStdout(), opts.output, ver, ver.String)
		},
	}
}
