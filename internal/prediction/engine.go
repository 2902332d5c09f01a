// Package prediction asks an LLM for next-day direction forecasts of window
// samples.
package prediction

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/STRATINT/stockcast/internal/llm"
	"github.com/STRATINT/stockcast/internal/metrics"
	"github.com/STRATINT/stockcast/internal/models"
	"github.com/STRATINT/stockcast/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// InferenceError stands in for the output of a prompt that could not be
// completed.
const InferenceError = "Inference Error"

// Mode selects how prompts are dispatched.
type Mode string

const (
	ModeSerial Mode = "serial"
	ModeBatch  Mode = "batch"
)

// Config tunes dispatch.
type Config struct {
	Mode             Mode
	BatchSize        int
	RelatedCompanies bool
}

// Engine produces PredictionRecords from WindowSamples.
type Engine struct {
	completer llm.Completer
	cfg       Config
	collector *metrics.PipelineCollector
	logger    *slog.Logger
}

// NewEngine validates cfg. collector may be nil.
func NewEngine(completer llm.Completer, cfg Config, collector *metrics.PipelineCollector, logger *slog.Logger) (*Engine, error) {
	switch cfg.Mode {
	case ModeSerial, ModeBatch:
	default:
		return nil, fmt.Errorf("unknown inference mode %q", cfg.Mode)
	}
	if cfg.Mode == ModeBatch && cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", cfg.BatchSize)
	}

	return &Engine{
		completer: completer,
		cfg:       cfg,
		collector: collector,
		logger:    logger,
	}, nil
}

// Predict runs the company-profile stage for every sample, then the forecast
// stage, and returns one record per sample in input order. Completion
// failures degrade to InferenceError; only cancellation is returned as an
// error.
func (e *Engine) Predict(ctx context.Context, samples []models.WindowSample) (records []models.PredictionRecord, err error) {
	ctx, span := tracing.Start(ctx, "prediction.predict",
		attribute.Int("samples", len(samples)),
		attribute.String("mode", string(e.cfg.Mode)),
	)
	defer func() { tracing.End(span, err) }()

	if len(samples) == 0 {
		return nil, nil
	}

	companyPrompts := make([]string, len(samples))
	for i, s := range samples {
		companyPrompts[i] = CompanyDescriptionPrompt(CompanyPromptInput{Ticker: s.Ticker})
	}
	descriptions, err := e.run(ctx, "company_description", "", companyPrompts)
	if err != nil {
		return nil, err
	}

	profiles := descriptions
	if e.cfg.RelatedCompanies {
		relatedPrompts := make([]string, len(samples))
		for i, s := range samples {
			relatedPrompts[i] = RelatedCompaniesPrompt(CompanyPromptInput{Ticker: s.Ticker})
		}
		related, err := e.run(ctx, "related_companies", "", relatedPrompts)
		if err != nil {
			return nil, err
		}

		profiles = make([]string, len(samples))
		for i := range samples {
			if related[i] == InferenceError {
				profiles[i] = descriptions[i]
				continue
			}
			profiles[i] = CompanyProfile(descriptions[i], related[i])
		}
	}

	forecastPrompts := make([]string, len(samples))
	for i, s := range samples {
		forecastPrompts[i] = ForecastPrompt(ForecastPromptInput{
			CompanyDescription: profiles[i],
			Summary:            s.Summary,
		})
	}
	outputs, err := e.run(ctx, "forecast", ForecastSystemPrompt, forecastPrompts)
	if err != nil {
		return nil, err
	}

	records = make([]models.PredictionRecord, len(samples))
	for i, s := range samples {
		label := ExtractLabel(outputs[i])
		e.collector.Prediction(string(label))
		records[i] = models.PredictionRecord{
			Ticker:             s.Ticker,
			Sample:             s,
			CompanyDescription: profiles[i],
			RawOutput:          outputs[i],
			Predicted:          label,
		}
		e.logger.Debug("prediction",
			"ticker", s.Ticker,
			"date", s.WindowEndDate.Format(models.DateLayout),
			"label", s.Label,
			"predicted", label,
		)
	}
	return records, nil
}

func (e *Engine) run(ctx context.Context, operation, system string, prompts []string) ([]string, error) {
	ctx = llm.WithOperation(ctx, operation)
	if e.cfg.Mode == ModeSerial {
		return e.serial(ctx, system, prompts)
	}

	outputs := make([]string, 0, len(prompts))
	for start := 0; start < len(prompts); start += e.cfg.BatchSize {
		end := min(start+e.cfg.BatchSize, len(prompts))
		chunk, err := e.batch(ctx, system, prompts[start:end])
		if err != nil {
			return nil, err
		}
		outputs = append(outputs, chunk...)
	}
	return outputs, nil
}

func (e *Engine) batch(ctx context.Context, system string, prompts []string) ([]string, error) {
	out, err := e.completer.CompleteBatch(ctx, system, prompts)
	if err == nil && len(out) == len(prompts) {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	if err == nil {
		err = fmt.Errorf("batch returned %d outputs for %d prompts", len(out), len(prompts))
	}

	e.collector.BatchFallback()
	e.logger.Warn("batch inference failed, falling back to serial",
		"operation", llm.Operation(ctx),
		"size", len(prompts),
		"error", err,
	)
	return e.serial(ctx, system, prompts)
}

func (e *Engine) serial(ctx context.Context, system string, prompts []string) ([]string, error) {
	outputs := make([]string, len(prompts))
	for i, prompt := range prompts {
		result := e.completer.Complete(ctx, system, prompt)
		if result.OK() {
			outputs[i] = result.Text
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}

		e.logger.Error("inference failed",
			"operation", llm.Operation(ctx),
			"index", i,
			"error", result.Err,
		)
		outputs[i] = InferenceError
	}
	return outputs, nil
}
