// internal/journal/journal.go
package journal

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrUnknownAttempt = errors.New("unknown execution attempt")

// Attempt is one explicit swap execution.
type Attempt struct {
	ID           string    `json:"id"`
	StartedAt    time.Time `json:"started_at"`
	FinishedAt   time.Time `json:"finished_at"`
	InputMint    string    `json:"input_mint"`
	OutputMint   string    `json:"output_mint"`
	InputSymbol  string    `json:"input_symbol"`
	OutputSymbol string    `json:"output_symbol"`
	InAmount     string    `json:"in_amount"`
	ExpectedOut  string    `json:"expected_out"`
	SlippageBps  uint16    `json:"slippage_bps"`
	Signature    string    `json:"signature,omitempty"`
	Status       string    `json:"status"`
	Reason       string    `json:"reason,omitempty"`
}

// Finished reports whether the attempt reached a terminal status.
func (a Attempt) Finished() bool {
	return !a.FinishedAt.IsZero()
}

// Journal keeps execution attempts in memory and, when a path is set,
// appends each finished attempt to a JSON-lines file.
type Journal struct {
	mu       sync.Mutex
	attempts []*Attempt
	byID     map[string]*Attempt
	path     string
	logger   *zap.Logger
}

// New creates a journal. An empty path keeps attempts in memory only.
func New(path string, logger *zap.Logger) *Journal {
	return &Journal{
		byID:   make(map[string]*Attempt),
		path:   path,
		logger: logger.Named("journal"),
	}
}

// Begin records a new attempt and returns its id.
func (j *Journal) Begin(a Attempt) string {
	j.mu.Lock()
	defer j.mu.Unlock()

	a.ID = uuid.New().String()
	if a.StartedAt.IsZero() {
		a.StartedAt = time.Now()
	}
	if a.Status == "" {
		a.Status = "idle"
	}
	rec := a
	j.attempts = append(j.attempts, &rec)
	j.byID[rec.ID] = &rec
	return rec.ID
}

// Update sets the status of attempt id. A terminal update stamps
// FinishedAt and persists the attempt.
func (j *Journal) Update(id, status, signature, reason string, terminal bool) error {
	j.mu.Lock()
	rec, ok := j.byID[id]
	if !ok {
		j.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownAttempt, id)
	}
	rec.Status = status
	if signature != "" {
		rec.Signature = signature
	}
	rec.Reason = reason
	if terminal {
		rec.FinishedAt = time.Now()
	}
	snapshot := *rec
	j.mu.Unlock()

	if !terminal || j.path == "" {
		return nil
	}
	if err := j.appendLine(snapshot); err != nil {
		j.logger.Error("Failed to persist attempt", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// Attempts returns a copy of all attempts in the order they started.
func (j *Journal) Attempts() []Attempt {
	j.mu.Lock()
	defer j.mu.Unlock()

	out := make([]Attempt, len(j.attempts))
	for i, a := range j.attempts {
		out[i] = *a
	}
	return out
}

func (j *Journal) appendLine(a Attempt) error {
	if dir := filepath.Dir(j.path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create journal directory: %w", err)
		}
	}

	file, err := os.OpenFile(j.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal: %w", err)
	}
	defer file.Close()

	line, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to encode attempt: %w", err)
	}
	if _, err := file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write journal: %w", err)
	}
	return nil
}

// Load reads a journal file written by a previous run. Malformed lines are
// skipped.
func Load(path string, logger *zap.Logger) ([]Attempt, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer file.Close()

	var attempts []Attempt
	scanner := bufio.NewScanner(file)
	line := 0
	for scanner.Scan() {
		line++
		if len(scanner.Bytes()) == 0 {
			continue
		}
		var a Attempt
		if err := json.Unmarshal(scanner.Bytes(), &a); err != nil {
			logger.Warn("Skipping malformed journal line", zap.Int("line", line), zap.Error(err))
			continue
		}
		attempts = append(attempts, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	return attempts, nil
}
