package inference

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/STRATINT/stockcast/internal/llm"
	"github.com/STRATINT/stockcast/internal/metrics"
	"github.com/STRATINT/stockcast/internal/models"
)

// Store persists inference logs.
type Store interface {
	Create(ctx context.Context, log models.InferenceLog) error
}

// Logger logs inference calls to an optional store and the metrics collector.
type Logger struct {
	store     Store
	collector *metrics.PipelineCollector
	logger    *slog.Logger
	runID     *string
	wg        sync.WaitGroup
}

// NewLogger creates a new inference logger. store and collector may be nil.
func NewLogger(store Store, collector *metrics.PipelineCollector, logger *slog.Logger) *Logger {
	return &Logger{
		store:     store,
		collector: collector,
		logger:    logger,
	}
}

// SetRunID attaches subsequent logs to an evaluation run.
func (l *Logger) SetRunID(runID string) {
	l.runID = &runID
}

// LogCallParams describes one recorded call.
type LogCallParams struct {
	Provider     string
	Model        string
	Operation    string
	BatchSize    int
	InputTokens  int
	OutputTokens int
	Latency      time.Duration
	Err          error
	Metadata     map[string]interface{}
}

// LogCall records an inference call. Store writes happen asynchronously; call
// Flush before exit.
func (l *Logger) LogCall(ctx context.Context, params LogCallParams) {
	status := "success"
	var errMsg *string
	if params.Err != nil {
		status = "error"
		msg := params.Err.Error()
		errMsg = &msg
	}

	l.collector.LLMCall(params.Operation, status, params.Latency, params.InputTokens, params.OutputTokens)

	if l.store == nil {
		return
	}

	var metadataJSON string
	if params.Metadata != nil {
		if jsonBytes, err := json.Marshal(params.Metadata); err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	inputTokens := params.InputTokens
	outputTokens := params.OutputTokens
	latencyMs := int(params.Latency.Milliseconds())
	cost := estimateCost(params.Provider, params.Model, inputTokens, outputTokens)

	log := models.InferenceLog{
		RunID:        l.runID,
		Provider:     params.Provider,
		Model:        params.Model,
		Operation:    params.Operation,
		BatchSize:    params.BatchSize,
		TokensUsed:   inputTokens + outputTokens,
		InputTokens:  &inputTokens,
		OutputTokens: &outputTokens,
		CostUSD:      &cost,
		LatencyMs:    &latencyMs,
		Status:       status,
		ErrorMessage: errMsg,
		Metadata:     metadataJSON,
	}

	// Log asynchronously to avoid blocking the main operation
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := l.store.Create(context.WithoutCancel(ctx), log); err != nil {
			l.logger.Error("failed to log inference call", "error", err)
		}
	}()
}

// Flush waits for pending store writes.
func (l *Logger) Flush() {
	l.wg.Wait()
}

// Completer decorates an llm.Completer with call logging.
type Completer struct {
	next     llm.Completer
	provider string
	model    string
	log      *Logger
}

// Wrap returns next with every call recorded through log.
func Wrap(next llm.Completer, provider, model string, log *Logger) *Completer {
	return &Completer{next: next, provider: provider, model: model, log: log}
}

// Complete forwards to the wrapped completer and records the result.
func (c *Completer) Complete(ctx context.Context, system, prompt string) llm.Result {
	start := time.Now()
	res := c.next.Complete(ctx, system, prompt)

	c.log.LogCall(ctx, LogCallParams{
		Provider:     c.provider,
		Model:        c.model,
		Operation:    llm.Operation(ctx),
		BatchSize:    1,
		InputTokens:  res.Usage.InputTokens,
		OutputTokens: res.Usage.OutputTokens,
		Latency:      time.Since(start),
		Err:          res.Err,
	})

	return res
}

// CompleteBatch forwards to the wrapped completer. Batches carry no usage, so
// token counts are estimated from the text.
func (c *Completer) CompleteBatch(ctx context.Context, system string, prompts []string) ([]string, error) {
	start := time.Now()
	out, err := c.next.CompleteBatch(ctx, system, prompts)

	input := 0
	for _, p := range prompts {
		input += llm.EstimateTokens(system + p)
	}
	output := 0
	for _, o := range out {
		output += llm.EstimateTokens(o)
	}

	c.log.LogCall(ctx, LogCallParams{
		Provider:     c.provider,
		Model:        c.model,
		Operation:    llm.Operation(ctx),
		BatchSize:    len(prompts),
		InputTokens:  input,
		OutputTokens: output,
		Latency:      time.Since(start),
		Err:          err,
		Metadata:     map[string]interface{}{"estimated_tokens": true},
	})

	return out, err
}

// estimateCost provides rough cost estimates (update with actual pricing)
func estimateCost(provider, model string, inputTokens, outputTokens int) float64 {
	var inputCostPer1M, outputCostPer1M float64

	switch provider {
	case "openai":
		switch model {
		case "gpt-4o":
			inputCostPer1M, outputCostPer1M = 2.50, 10.00
		case "gpt-4o-mini":
			inputCostPer1M, outputCostPer1M = 0.15, 0.60
		case "gpt-3.5-turbo":
			inputCostPer1M, outputCostPer1M = 0.50, 1.50
		default:
			inputCostPer1M, outputCostPer1M = 5.00, 15.00
		}
	case "anthropic":
		switch model {
		case "claude-3-haiku-20240307":
			inputCostPer1M, outputCostPer1M = 0.25, 1.25
		case "claude-3-opus-20240229":
			inputCostPer1M, outputCostPer1M = 15.00, 75.00
		default:
			inputCostPer1M, outputCostPer1M = 3.00, 15.00
		}
	default:
		return 0
	}

	inputCost := (float64(inputTokens) / 1_000_000) * inputCostPer1M
	outputCost := (float64(outputTokens) / 1_000_000) * outputCostPer1M

	return inputCost + outputCost
}
