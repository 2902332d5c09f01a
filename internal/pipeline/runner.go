// Package pipeline runs an evaluation end to end: windows, predictions,
// scoring and the persisted report.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/STRATINT/stockcast/internal/evaluation"
	"github.com/STRATINT/stockcast/internal/models"
	"github.com/STRATINT/stockcast/internal/tracing"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// WindowLoader builds the samples of a split.
type WindowLoader interface {
	Load(ctx context.Context, split models.Split) ([]models.WindowSample, error)
}

// Predictor forecasts samples.
type Predictor interface {
	Predict(ctx context.Context, samples []models.WindowSample) ([]models.PredictionRecord, error)
}

// RunRepository records evaluation runs.
type RunRepository interface {
	CreateRun(ctx context.Context, modelName, datasetName string, split models.Split) (string, error)
	CompleteRun(ctx context.Context, runID string, report models.MetricsReport, artifactPath string) error
	FailRun(ctx context.Context, runID string, errMsg string) error
}

// RunTagger is told the ID of the run in progress so per-call records can be
// linked to it.
type RunTagger interface {
	SetRunID(runID string)
}

// Config names the run and where its artifact goes.
type Config struct {
	ModelName   string
	DatasetName string
	ResultsDir  string
}

// Result summarizes a completed run.
type Result struct {
	RunID        string
	Records      []models.PredictionRecord
	Report       models.MetricsReport
	ArtifactPath string
	Tickers      []evaluation.TickerAccuracy
	Duration     time.Duration
}

// Runner wires the pipeline stages. runs and tagger may be nil.
type Runner struct {
	windows   WindowLoader
	predictor Predictor
	runs      RunRepository
	tagger    RunTagger
	config    Config
	logger    *slog.Logger
}

// NewRunner creates a Runner.
func NewRunner(
	windows WindowLoader,
	predictor Predictor,
	runs RunRepository,
	tagger RunTagger,
	logger *slog.Logger,
	config Config,
) *Runner {
	return &Runner{
		windows:   windows,
		predictor: predictor,
		runs:      runs,
		tagger:    tagger,
		config:    config,
		logger:    logger,
	}
}

// Run evaluates split and writes the report artifact. The run record, when a
// repository is configured, is completed or failed accordingly.
func (r *Runner) Run(ctx context.Context, split models.Split) (result Result, err error) {
	start := time.Now()
	ctx, span := tracing.Start(ctx, "pipeline.run",
		attribute.String("model", r.config.ModelName),
		attribute.String("dataset", r.config.DatasetName),
		attribute.String("split", string(split)),
	)
	defer func() { tracing.End(span, err) }()

	runID, runs := r.startRun(ctx, split)
	result.RunID = runID
	span.SetAttributes(attribute.String("run_id", runID))

	logger := r.logger.With("run_id", runID, "split", split)
	logger.Info("evaluation started", "model", r.config.ModelName, "dataset", r.config.DatasetName)

	defer func() {
		if err == nil || runs == nil {
			return
		}
		if failErr := runs.FailRun(context.WithoutCancel(ctx), runID, err.Error()); failErr != nil {
			logger.Error("failed to mark run as failed", "error", failErr)
		}
	}()

	samples, err := r.windows.Load(ctx, split)
	if err != nil {
		return result, fmt.Errorf("failed to load windows: %w", err)
	}
	logger.Info("windows ready", "samples", len(samples))

	records, err := r.predictor.Predict(ctx, samples)
	if err != nil {
		return result, fmt.Errorf("failed to predict: %w", err)
	}
	result.Records = records
	if unknown := countUnknown(records); unknown > 0 {
		logger.Warn("predictions without a direction are scored as wrong", "count", unknown)
	}

	report, err := r.score(ctx, records, start)
	if err != nil {
		return result, err
	}
	result.Report = report

	path, err := evaluation.Save(r.config.ResultsDir, report)
	if err != nil {
		return result, err
	}
	result.ArtifactPath = path

	if runs != nil {
		if err := runs.CompleteRun(ctx, runID, report, path); err != nil {
			logger.Error("failed to complete run record", "error", err)
		}
	}

	result.Tickers = evaluation.ByTicker(records)
	for _, t := range result.Tickers {
		logger.Info("ticker accuracy",
			"ticker", t.Ticker,
			"correct", t.Correct,
			"total", t.Total,
			"accuracy", t.Accuracy,
		)
	}

	result.Duration = time.Since(start)
	logger.Info("evaluation completed",
		"valid", report.ValidSamples,
		"accuracy", report.Accuracy,
		"mcc", report.MCC,
		"f1", report.F1Score,
		"artifact", path,
		"duration", result.Duration,
	)
	return result, nil
}

// startRun obtains a run ID from the repository, or generates one when none
// is configured or the insert fails. The returned repository is nil when the
// run is not tracked.
func (r *Runner) startRun(ctx context.Context, split models.Split) (string, RunRepository) {
	runID := uuid.NewString()
	runs := r.runs
	if runs != nil {
		id, err := runs.CreateRun(ctx, r.config.ModelName, r.config.DatasetName, split)
		if err != nil {
			r.logger.Warn("failed to record run, continuing untracked", "error", err)
			runs = nil
		} else {
			runID = id
		}
	}

	if r.tagger != nil {
		r.tagger.SetRunID(runID)
	}
	return runID, runs
}

func (r *Runner) score(ctx context.Context, records []models.PredictionRecord, start time.Time) (report models.MetricsReport, err error) {
	_, span := tracing.Start(ctx, "evaluation.compute", attribute.Int("records", len(records)))
	defer func() { tracing.End(span, err) }()

	report, err = evaluation.FromRecords(records)
	if err != nil {
		return report, fmt.Errorf("failed to score predictions: %w", err)
	}
	report.ModelName = r.config.ModelName
	report.DatasetName = r.config.DatasetName
	report.Timestamp = start.Format(evaluation.TimestampLayout)
	return report, nil
}

// Warm builds the windows of each split without predicting, filling the
// summary cache. It returns the sample count per split.
func (r *Runner) Warm(ctx context.Context, splits ...models.Split) (map[models.Split]int, error) {
	counts := make(map[models.Split]int, len(splits))
	for _, split := range splits {
		samples, err := r.windows.Load(ctx, split)
		if err != nil {
			return counts, fmt.Errorf("failed to load %s windows: %w", split, err)
		}
		counts[split] = len(samples)
		r.logger.Info("split warmed", "split", split, "samples", len(samples))
	}
	return counts, nil
}

func countUnknown(records []models.PredictionRecord) int {
	n := 0
	for _, r := range records {
		if r.Predicted == models.LabelUnknown {
			n++
		}
	}
	return n
}
