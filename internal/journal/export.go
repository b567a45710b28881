// internal/journal/export.go
package journal

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
)

// ExportFormat represents the export file format
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

var ErrNothingToExport = errors.New("no attempts match the export criteria")

// ExportOptions configures the export behavior
type ExportOptions struct {
	Format        ExportFormat
	StartTime     time.Time
	EndTime       time.Time
	MintFilter    string // matches either side of the pair
	OnlyConfirmed bool
	OutputDir     string
}

// Summary contains statistics for exported attempts
type Summary struct {
	TotalAttempts int       `json:"total_attempts"`
	Confirmed     int       `json:"confirmed"`
	Failed        int       `json:"failed"`
	Unfinished    int       `json:"unfinished"`
	UniquePairs   int       `json:"unique_pairs"`
	StartDate     time.Time `json:"start_date"`
	EndDate       time.Time `json:"end_date"`
}

// Exporter writes journal attempts to CSV or JSON files.
type Exporter struct {
	logger *zap.Logger
}

func NewExporter(logger *zap.Logger) *Exporter {
	return &Exporter{logger: logger.Named("journal-export")}
}

// Export writes the attempts matching options and returns the file path.
func (e *Exporter) Export(attempts []Attempt, options ExportOptions) (string, error) {
	filtered := filterAttempts(attempts, options)
	if len(filtered) == 0 {
		return "", ErrNothingToExport
	}

	sort.Slice(filtered, func(i, j int) bool {
		return filtered[i].StartedAt.Before(filtered[j].StartedAt)
	})

	if options.OutputDir == "" {
		options.OutputDir = "."
	}
	if err := os.MkdirAll(options.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(options.OutputDir, generateFilename(options))

	var err error
	switch options.Format {
	case FormatCSV:
		err = exportToCSV(filtered, outputPath)
	case FormatJSON:
		err = exportToJSON(filtered, outputPath)
	default:
		err = fmt.Errorf("unsupported format: %s", options.Format)
	}
	if err != nil {
		return "", err
	}

	e.logger.Info("Attempts exported",
		zap.String("file", outputPath),
		zap.Int("count", len(filtered)),
		zap.String("format", string(options.Format)))

	return outputPath, nil
}

func filterAttempts(attempts []Attempt, options ExportOptions) []Attempt {
	var filtered []Attempt
	for _, a := range attempts {
		if !options.StartTime.IsZero() && a.StartedAt.Before(options.StartTime) {
			continue
		}
		if !options.EndTime.IsZero() && a.StartedAt.After(options.EndTime) {
			continue
		}
		if options.MintFilter != "" && a.InputMint != options.MintFilter && a.OutputMint != options.MintFilter {
			continue
		}
		if options.OnlyConfirmed && a.Status != "confirmed" {
			continue
		}
		filtered = append(filtered, a)
	}
	return filtered
}

func generateFilename(options ExportOptions) string {
	prefix := "swaps_all"
	if options.OnlyConfirmed {
		prefix = "swaps_confirmed"
	}
	if options.MintFilter != "" {
		mint := options.MintFilter
		if len(mint) > 8 {
			mint = mint[:8]
		}
		prefix += "_" + mint
	}
	return fmt.Sprintf("%s_%s.%s", prefix, time.Now().Format("20060102_150405"), options.Format)
}

var csvHeaders = []string{
	"id", "started_at", "finished_at", "input_symbol", "output_symbol",
	"input_mint", "output_mint", "in_amount", "expected_out", "slippage_bps",
	"status", "signature", "reason",
}

func toCSV(a Attempt) []string {
	finished := ""
	if a.Finished() {
		finished = a.FinishedAt.Format(time.RFC3339)
	}
	return []string{
		a.ID,
		a.StartedAt.Format(time.RFC3339),
		finished,
		a.InputSymbol,
		a.OutputSymbol,
		a.InputMint,
		a.OutputMint,
		a.InAmount,
		a.ExpectedOut,
		fmt.Sprintf("%d", a.SlippageBps),
		a.Status,
		a.Signature,
		a.Reason,
	}
}

func exportToCSV(attempts []Attempt, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(csvHeaders); err != nil {
		return fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, a := range attempts {
		if err := writer.Write(toCSV(a)); err != nil {
			return fmt.Errorf("failed to write attempt: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

func exportToJSON(attempts []Attempt, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create JSON file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")

	exportData := struct {
		ExportTime   time.Time `json:"export_time"`
		AttemptCount int       `json:"attempt_count"`
		Attempts     []Attempt `json:"attempts"`
		Summary      Summary   `json:"summary"`
	}{
		ExportTime:   time.Now(),
		AttemptCount: len(attempts),
		Attempts:     attempts,
		Summary:      Summarize(attempts),
	}

	if err := encoder.Encode(exportData); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// Summarize computes statistics over attempts sorted by start time.
func Summarize(attempts []Attempt) Summary {
	summary := Summary{TotalAttempts: len(attempts)}
	if len(attempts) == 0 {
		return summary
	}

	summary.StartDate = attempts[0].StartedAt
	summary.EndDate = attempts[len(attempts)-1].StartedAt

	pairs := make(map[string]struct{})
	for _, a := range attempts {
		pairs[a.InputMint+"/"+a.OutputMint] = struct{}{}
		switch {
		case a.Status == "confirmed":
			summary.Confirmed++
		case a.Status == "failed":
			summary.Failed++
		case !a.Finished():
			summary.Unfinished++
		}
	}
	summary.UniquePairs = len(pairs)
	return summary
}
