// cmd/jupiter-swap/swap.go
package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/jupiter-swap/internal/app"
	"github.com/rovshanmuradov/jupiter-swap/internal/transaction"
)

var noConfirm bool

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <input-token> <output-token>",
	Short: "Execute a swap with the configured wallet",
	Long: `Fetch a route, ask for confirmation and execute it. The transaction is
signed with private_key and confirmed through rpc_url.

Examples:
  jupiter-swap swap 0.1 SOL USDC
  jupiter-swap swap 0.1 SOL USDC --slippage 100 --yes`,
	Args: cobra.ExactArgs(3),
	RunE: runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)
	swapCmd.Flags().Uint16Var(&slippageFlag, "slippage", 0, "Slippage in basis points (default from config)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) error {
	ctx, cancel := app.NotifyContext(cmd.Context())
	defer cancel()

	w, err := application.RequireWallet()
	if err != nil {
		return err
	}

	s, r, err := fetchRoute(ctx, args)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, app.FormatRoute(r))

	if !noConfirm {
		fmt.Fprintf(out, "Swap %s %s from %s? [y/N] ", args[0], args[1], w.Address())
		answer, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if a := strings.ToLower(strings.TrimSpace(answer)); a != "y" && a != "yes" {
			fmt.Fprintln(out, "Cancelled")
			return nil
		}
	}

	updates, err := s.Execute(ctx, w, application.Chain, application.Chain)
	if err != nil {
		return err
	}

	var last transaction.State
	for state := range updates {
		fmt.Fprintf(out, "* %s\n", state)
		last = state
	}

	if last.Signature != "" {
		appLogger.WithTransaction(last.Signature).Info("Swap finished",
			zap.Stringer("status", last.Status),
			zap.String("reason", last.Reason))
	}
	if last.Status != transaction.StatusConfirmed {
		if last.Err != nil {
			return last.Err
		}
		return errors.New(last.Reason)
	}
	fmt.Fprintf(out, "Swap confirmed: %s\n", transaction.ExplorerURL(last.Signature))
	return nil
}
