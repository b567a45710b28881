// cmd/jupiter-swap/balance.go
package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/jupiter-swap/internal/amount"
	"github.com/rovshanmuradov/jupiter-swap/internal/token"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Show the SOL balance of the wallet or an address",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var address string
		if len(args) == 1 {
			address = args[0]
		} else {
			w, err := application.RequireWallet()
			if err != nil {
				return err
			}
			address = w.Address()
		}

		lamports, err := application.Chain.Balance(cmd.Context(), address)
		if err != nil {
			return err
		}
		sol, err := amount.ToDecimal(strconv.FormatUint(lamports, 10), token.SOL.Decimals)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %s SOL\n", address, sol)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(balanceCmd)
}
