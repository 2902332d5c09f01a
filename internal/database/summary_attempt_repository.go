package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/STRATINT/stockcast/internal/models"
	"github.com/lib/pq"
)

// SummaryAttemptRepository stores the audit trail of summarization calls.
type SummaryAttemptRepository struct {
	db *sql.DB
}

func NewSummaryAttemptRepository(db *sql.DB) *SummaryAttemptRepository {
	return &SummaryAttemptRepository{db: db}
}

// Record appends one attempt.
func (r *SummaryAttemptRepository) Record(ctx context.Context, attempt models.SummaryAttempt) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO summary_attempts (ticker, summary_date, tweet_data, prompt, summary, raw_output, model, method, informative)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		attempt.Ticker, attempt.Date, pq.Array(attempt.TweetData), attempt.Prompt,
		attempt.Summary, attempt.RawOutput, attempt.Model, attempt.Method, attempt.Informative,
	)
	if err != nil {
		return fmt.Errorf("failed to record summary attempt: %w", err)
	}
	return nil
}

// ListForKey returns attempts for one cache key, oldest first.
func (r *SummaryAttemptRepository) ListForKey(ctx context.Context, key models.SummaryKey) ([]models.SummaryAttempt, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, ticker, to_char(summary_date, 'YYYY-MM-DD'), tweet_data, prompt, summary, raw_output, model, method, informative, created_at
		 FROM summary_attempts
		 WHERE model = $1 AND method = $2 AND ticker = $3 AND summary_date = $4
		 ORDER BY created_at ASC`,
		key.Model, key.Method, key.Ticker, key.Date,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list summary attempts: %w", err)
	}
	defer rows.Close()

	var attempts []models.SummaryAttempt
	for rows.Next() {
		var a models.SummaryAttempt
		if err := rows.Scan(&a.ID, &a.Ticker, &a.Date, pq.Array(&a.TweetData), &a.Prompt,
			&a.Summary, &a.RawOutput, &a.Model, &a.Method, &a.Informative, &a.CreatedAt); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}
