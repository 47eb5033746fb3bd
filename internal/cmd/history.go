package cmd

import (
	"github.com/spf13/cobra"

	"crptapi/internal/storage"
	"crptapi/internal/version"
)

func newHistoryCommand(opts *options, ver version.Info) *cobra.Command {
	var filter storage.Filter

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List documents recorded in the local journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.bootstrap(ver)
			if err != nil {
				return err
			}
			defer rt.Close()

			records, err := rt.journal.Documents(cmd.Context(), filter)
			if err != nil {
				return err
			}
			return printResult(cmd.OutOrStdout(), opts.output, records, func() string {
				return renderRecords(records)
			})
		},
	}

	cmd.Flags().StringVarP(&filter.ProductGroup, "group", "g", "", "only documents of this product group")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 20, "maximum number of documents (0 for all)")
	return cmd
}
