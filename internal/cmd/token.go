package cmd

import (
	"github.com/spf13/cobra"

	"crptapi/internal/crpt"
	"crptapi/internal/version"
)

type tokenOutput struct {
	Token  string            `json:"token"`
	Claims *crpt.TokenClaims `json:"claims,omitempty"`
}

func newTokenCommand(opts *options, ver version.Info) *cobra.Command {
	var refresh bool

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token, authenticating if needed",
		Long: `Print a bearer token for the configured API.

With the redis token cache this shows the token other processes share; with
the memory cache every invocation authenticates anew.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := opts.bootstrap(ver)
			if err != nil {
				return err
			}
			defer rt.Close()

			ctx := cmd.Context()
			if refresh {
				if err := rt.client.InvalidateToken(ctx); err != nil {
					return err
				}
			}

			token, err := rt.client.Token(ctx)
			if err != nil {
				return err
			}
			out := tokenOutput{Token: token}
			if claims, ok := crpt.ParseTokenClaims(token); ok {
				out.Claims = &claims
			}
			return printResult(cmd.OutOrStdout(), opts.output, out, func() string {
				return token
			})
		},
	}

	cmd.Flags().BoolVar(&refresh, "refresh", false, "drop the cached token first")
	return cmd
}
