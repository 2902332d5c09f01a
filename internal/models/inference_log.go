package models

import "time"

// InferenceLog is one LLM call made during a run. Batched calls are one row
// with BatchSize set to the number of prompts.
type InferenceLog struct {
	ID           int       `json:"id"`
	RunID        *string   `json:"run_id"`
	Provider     string    `json:"provider"`
	Model        string    `json:"model"`
	Operation    string    `json:"operation"`
	BatchSize    int       `json:"batch_size"`
	TokensUsed   int       `json:"tokens_used"`
	InputTokens  *int      `json:"input_tokens"`
	OutputTokens *int      `json:"output_tokens"`
	CostUSD      *float64  `json:"cost_usd"`
	LatencyMs    *int      `json:"latency_ms"`
	Status       string    `json:"status"` // success or error
	ErrorMessage *string   `json:"error_message"`
	Metadata     string    `json:"metadata"`
	CreatedAt    time.Time `json:"created_at"`
}

// OperationUsage aggregates a run's calls for one operation.
type OperationUsage struct {
	Operation    string  `json:"operation"`
	Calls        int     `json:"calls"`
	FailedCalls  int     `json:"failed_calls"`
	Tokens       int64   `json:"tokens"`
	CostUSD      float64 `json:"cost_usd"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
}
