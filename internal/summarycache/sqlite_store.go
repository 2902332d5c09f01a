package summarycache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/STRATINT/stockcast/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps entries in a single SQLite file, one row per key.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", path+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS summary_cache (
			model TEXT NOT NULL,
			method TEXT NOT NULL,
			ticker TEXT NOT NULL,
			date TEXT NOT NULL,
			entry TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (model, method, ticker, date)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create summary_cache table: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context, key models.SummaryKey) (models.SummaryEntry, bool, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT entry FROM summary_cache WHERE model = ? AND method = ? AND ticker = ? AND date = ?`,
		key.Model, key.Method, key.Ticker, key.Date,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return models.SummaryEntry{}, false, nil
	}
	if err != nil {
		return models.SummaryEntry{}, false, fmt.Errorf("failed to query summary: %w", err)
	}

	var entry models.SummaryEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return models.SummaryEntry{}, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, key, err)
	}
	return entry, true, nil
}

// Save upserts the row; the cache has already checked for an existing
// readable entry, so a conflict here means the stored one was corrupt.
func (s *SQLiteStore) Save(ctx context.Context, entry models.SummaryEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO summary_cache (model, method, ticker, date, entry) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (model, method, ticker, date) DO UPDATE SET entry = excluded.entry`,
		entry.Model, entry.Method, entry.Ticker, entry.Date, string(data),
	)
	if err != nil {
		return fmt.Errorf("failed to save summary: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
