package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/STRATINT/stockcast/internal/models"
)

// InferenceLogRepository stores one row per LLM call.
type InferenceLogRepository struct {
	db *sql.DB
}

func NewInferenceLogRepository(db *sql.DB) *InferenceLogRepository {
	return &InferenceLogRepository{db: db}
}

// Create inserts a call record. Empty metadata is stored as NULL.
func (r *InferenceLogRepository) Create(ctx context.Context, call models.InferenceLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO inference_logs (
			run_id, provider, model, operation, batch_size,
			tokens_used, input_tokens, output_tokens, cost_usd, latency_ms,
			status, error_message, metadata
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, '')::jsonb)`,
		call.RunID, call.Provider, call.Model, call.Operation, call.BatchSize,
		call.TokensUsed, call.InputTokens, call.OutputTokens, call.CostUSD, call.LatencyMs,
		call.Status, call.ErrorMessage, call.Metadata,
	)
	if err != nil {
		return fmt.Errorf("failed to insert inference log: %w", err)
	}
	return nil
}

// UsageByOperation totals the calls of one run per pipeline stage
// (summarize, company_description, forecast, ...), ordered by operation.
func (r *InferenceLogRepository) UsageByOperation(ctx context.Context, runID string) ([]models.OperationUsage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT operation,
		       COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'error'),
		       COALESCE(SUM(tokens_used), 0),
		       COALESCE(SUM(cost_usd), 0),
		       COALESCE(AVG(latency_ms), 0)
		FROM inference_logs
		WHERE run_id = $1
		GROUP BY operation
		ORDER BY operation`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query inference usage: %w", err)
	}
	defer rows.Close()

	var usage []models.OperationUsage
	for rows.Next() {
		var u models.OperationUsage
		if err := rows.Scan(&u.Operation, &u.Calls, &u.FailedCalls, &u.Tokens, &u.CostUSD, &u.AvgLatencyMs); err != nil {
			return nil, fmt.Errorf("failed to scan inference usage: %w", err)
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
