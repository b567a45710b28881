// cmd/jupiter-swap/history.go
package main

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/spf13/cobra"

	"github.com/rovshanmuradov/jupiter-swap/internal/journal"
	"github.com/rovshanmuradov/jupiter-swap/internal/logger"
)

var (
	exportFormat    string
	exportDir       string
	exportMint      string
	exportConfirmed bool
	exportSince     time.Duration
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded swap attempts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		attempts, err := loadAttempts()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		for _, a := range attempts {
			fmt.Fprintf(out, "%s  %s %s -> %s %s  %-9s %s\n",
				a.StartedAt.Format(time.DateTime),
				a.InAmount, a.InputSymbol, a.ExpectedOut, a.OutputSymbol,
				a.Status, logger.ShortenAddress(a.Signature))
		}
		summary := journal.Summarize(attempts)
		fmt.Fprintf(out, "%d attempts: %d confirmed, %d failed\n",
			summary.TotalAttempts, summary.Confirmed, summary.Failed)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export recorded swap attempts to CSV or JSON",
	RunE: func(cmd *cobra.Command, _ []string) error {
		attempts, err := loadAttempts()
		if err != nil {
			return err
		}
		opts := journal.ExportOptions{
			Format:        journal.ExportFormat(exportFormat),
			MintFilter:    exportMint,
			OnlyConfirmed: exportConfirmed,
			OutputDir:     exportDir,
		}
		if exportSince > 0 {
			opts.StartTime = time.Now().Add(-exportSince)
		}
		path, err := journal.NewExporter(application.Logger).Export(attempts, opts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
		return nil
	},
}

// loadAttempts reads the journal; a journal that does not exist yet is empty.
func loadAttempts() ([]journal.Attempt, error) {
	attempts, err := journal.Load(application.Config.JournalPath, application.Logger)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	return attempts, err
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(journal.FormatCSV), "csv or json")
	exportCmd.Flags().StringVarP(&exportDir, "out", "o", "exports", "Output directory")
	exportCmd.Flags().StringVar(&exportMint, "mint", "", "Only attempts involving this mint")
	exportCmd.Flags().BoolVar(&exportConfirmed, "confirmed", false, "Only confirmed attempts")
	exportCmd.Flags().DurationVar(&exportSince, "since", 0, "Only attempts started within this duration")
}
