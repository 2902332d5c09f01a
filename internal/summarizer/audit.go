package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/STRATINT/stockcast/internal/models"
)

// AuditLog receives every summarization attempt, informative or not.
type AuditLog interface {
	Record(ctx context.Context, attempt models.SummaryAttempt) error
}

// AppendLog is the single-file JSON array log kept for compatibility with
// existing analysis notebooks. Each Record rewrites the whole file.
type AppendLog struct {
	path string
	mu   sync.Mutex
}

type appendLogRecord struct {
	Ticker    string   `json:"ticker"`
	Date      string   `json:"date"`
	TweetData []string `json:"tweet_data"`
	Prompt    string   `json:"prompt"`
	Summary   string   `json:"summary"`
	RawOutput string   `json:"raw_output,omitempty"`
}

// NewAppendLog returns a log writing to path.
func NewAppendLog(path string) *AppendLog {
	return &AppendLog{path: path}
}

// Record appends attempt. An unreadable existing file is replaced by a fresh
// array.
func (l *AppendLog) Record(_ context.Context, attempt models.SummaryAttempt) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read()
	if err != nil {
		return err
	}

	records = append(records, appendLogRecord{
		Ticker:    attempt.Ticker,
		Date:      attempt.Date,
		TweetData: attempt.TweetData,
		Prompt:    attempt.Prompt,
		Summary:   attempt.Summary,
		RawOutput: attempt.RawOutput,
	})

	data, err := json.MarshalIndent(records, "", "    ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary log: %w", err)
	}

	if dir := filepath.Dir(l.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create summary log directory: %w", err)
		}
	}
	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write summary log: %w", err)
	}
	return nil
}

func (l *AppendLog) read() ([]appendLogRecord, error) {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read summary log: %w", err)
	}

	var records []appendLogRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, nil
	}
	return records, nil
}
