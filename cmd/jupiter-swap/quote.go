// cmd/jupiter-swap/quote.go
package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/jupiter-swap/internal/amount"
	"github.com/rovshanmuradov/jupiter-swap/internal/app"
	"github.com/rovshanmuradov/jupiter-swap/internal/quotesync"
	"github.com/rovshanmuradov/jupiter-swap/internal/route"
	"github.com/rovshanmuradov/jupiter-swap/internal/session"
)

var slippageFlag uint16

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <input-token> <output-token>",
	Short: "Show the best route for selling an amount",
	Long: `Fetch a Jupiter quote and print its route. Tokens are symbols from the
registry or mint addresses.

Examples:
  jupiter-swap quote 1 SOL USDC
  jupiter-swap quote 250 USDC JUPyiwrYJFskUPiHa7hkeR8VUtAeFoSYbKedZNsDvCN --slippage 100`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, r, err := fetchRoute(cmd.Context(), args)
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), app.FormatRoute(r))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.Flags().Uint16Var(&slippageFlag, "slippage", 0, "Slippage in basis points (default from config)")
}

// fetchRoute opens a session for <amount> <input> <output> and fetches its
// route.
func fetchRoute(ctx context.Context, args []string) (*session.Session, *route.Processed, error) {
	value, err := amount.Parse(args[0])
	if err != nil {
		return nil, nil, err
	}
	if !value.IsPositive() {
		return nil, nil, errors.New("amount must be positive")
	}
	input, err := application.ResolveToken(ctx, args[1])
	if err != nil {
		return nil, nil, err
	}
	output, err := application.ResolveToken(ctx, args[2])
	if err != nil {
		return nil, nil, err
	}

	s, err := application.NewSession(input, output)
	if err != nil {
		return nil, nil, err
	}
	if slippageFlag > 0 {
		s.SetSlippage(slippageFlag)
	}
	s.EditAmount(quotesync.SideInput, value)

	r, err := s.RefreshRoute(ctx)
	if err != nil {
		return nil, nil, err
	}
	return s, r, nil
}
