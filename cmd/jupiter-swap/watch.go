// cmd/jupiter-swap/watch.go
package main

import (
	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/jupiter-swap/internal/app"
)

var watchCmd = &cobra.Command{
	Use:   "watch [input-token] [output-token]",
	Short: "Interactive swap form with live quotes",
	Long: `Start a line-driven swap form. Typing "in 1.5" or "out 150" keeps the
other amount in sync with live quotes; the route is refreshed when the form
settles.

Examples:
  jupiter-swap watch
  jupiter-swap watch USDC SOL`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := app.NotifyContext(cmd.Context())
		defer cancel()

		refs := []string{"SOL", "USDC"}
		copy(refs, args)
		input, err := application.ResolveToken(ctx, refs[0])
		if err != nil {
			return err
		}
		output, err := application.ResolveToken(ctx, refs[1])
		if err != nil {
			return err
		}

		s, err := application.NewSession(input, output)
		if err != nil {
			return err
		}

		console := app.NewConsole(s, application.Wallet, application.Chain, application.Chain,
			application.ResolveToken, cmd.OutOrStdout())
		sub := console.Subscribe(application.Bus)
		defer sub.Unsubscribe()

		return console.Run(ctx, cmd.InOrStdin())
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
