// Package cmd implements the crptapi command line.
package cmd

import (
	"github.com/spf13/cobra"

	"crptapi/internal/version"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	configFile string
	baseURL    string
	verbose    bool
	output     string
}

// NewRootCommand builds the command tree.
func NewRootCommand(ver version.Info) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "crptapi",
		Short: "Client for the national goods labelling API",
		Long: `crptapi creates documents in the national goods labelling system.

Calls share one rate budget and one bearer token. The token is obtained
through a challenge, sign and exchange handshake and refreshed when the
server rejects it.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "path to configuration file")
	root.PersistentFlags().StringVar(&opts.baseURL, "base-url", "", "override api.base_url")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output (sets log level to debug)")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "text", "output format: text, json")

	root.AddCommand(
		newCreateCommand(opts, ver),
		newBatchCommand(opts, ver),
		newTokenCommand(opts, ver),
		newHistoryCommand(opts, ver),
		newConfigCommand(),
		newVersionCommand(opts, ver),
	)
	return root
}
