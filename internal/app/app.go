// Package app assembles the pipeline components from configuration.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/STRATINT/stockcast/internal/cloudsql"
	"github.com/STRATINT/stockcast/internal/config"
	"github.com/STRATINT/stockcast/internal/database"
	"github.com/STRATINT/stockcast/internal/dataset"
	"github.com/STRATINT/stockcast/internal/inference"
	"github.com/STRATINT/stockcast/internal/llm"
	"github.com/STRATINT/stockcast/internal/metrics"
	"github.com/STRATINT/stockcast/internal/pipeline"
	"github.com/STRATINT/stockcast/internal/prediction"
	"github.com/STRATINT/stockcast/internal/summarizer"
	"github.com/STRATINT/stockcast/internal/summarycache"
	"github.com/STRATINT/stockcast/internal/tracing"
	"github.com/STRATINT/stockcast/internal/window"
)

const sqliteCacheFile = "summaries.db"

// App holds the wired components of one process.
type App struct {
	Config     config.Config
	Logger     *slog.Logger
	Collector  *metrics.PipelineCollector
	Cache      *summarycache.Cache
	Summarizer *summarizer.Summarizer
	Windows    *window.Builder
	Engine     *prediction.Engine
	Runner     *pipeline.Runner
	Inference  *inference.Logger
	// Usage reads per-operation call totals; nil without a database.
	Usage *database.InferenceLogRepository

	closers []func(context.Context) error
}

// New builds every component. Close must be called to flush logs, spans and
// connections.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}
	if err := a.build(ctx); err != nil {
		_ = a.Close(context.WithoutCancel(ctx))
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.Config
	logger := a.Logger

	shutdownTracing, err := tracing.Setup(ctx, cfg.Observability.TracingEnabled, os.Stderr)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	a.closers = append(a.closers, shutdownTracing)

	collector, err := metrics.NewPipelineCollector()
	if err != nil {
		return fmt.Errorf("failed to init metrics: %w", err)
	}
	a.Collector = collector
	if cfg.Observability.MetricsAddr != "" {
		collector.Serve(ctx, cfg.Observability.MetricsAddr, logger)
	}

	db, err := a.openDatabase(ctx)
	if err != nil {
		return err
	}

	var (
		inferenceStore inference.Store
		runs           pipeline.RunRepository
		audits         []summarizer.AuditLog
	)
	if db != nil {
		a.Usage = database.NewInferenceLogRepository(db)
		inferenceStore = a.Usage
		runs = database.NewRunRepository(db)
		audits = append(audits, database.NewSummaryAttemptRepository(db))
	}
	if cfg.Summary.LogPath != "" {
		audits = append(audits, summarizer.NewAppendLog(cfg.Summary.LogPath))
	}

	a.Inference = inference.NewLogger(inferenceStore, collector, logger)
	a.closers = append(a.closers, func(context.Context) error {
		a.Inference.Flush()
		return nil
	})

	base, err := NewCompleter(cfg.LLM, logger)
	if err != nil {
		return err
	}
	completer := inference.Wrap(base, cfg.LLM.Provider, cfg.LLM.Model, a.Inference)

	durable, err := a.openDurableCache(ctx)
	if err != nil {
		return err
	}
	a.Cache, err = summarycache.New(durable, cfg.Summary.MemorySize, collector, logger)
	if err != nil {
		return err
	}

	a.Summarizer, err = summarizer.New(completer, a.Cache, summarizer.Config{
		Model:       cfg.LLM.Model,
		Method:      summarizer.Method(cfg.Summary.Method),
		TokenBudget: cfg.LLM.TokenBudget,
	}, logger, audits...)
	if err != nil {
		return err
	}

	paths, err := dataset.Resolve(cfg.Dataset.Name, cfg.Dataset.Root, cfg.Dataset.PriceDir, cfg.Dataset.TweetDir)
	if err != nil {
		return err
	}
	logger.Info("dataset resolved", "dataset", cfg.Dataset.Name, "price_dir", paths.PriceDir, "tweet_dir", paths.TweetDir)

	prices, err := dataset.NewPriceStore(paths.PriceDir, logger)
	if err != nil {
		return err
	}
	tweets := dataset.NewTweetStore(paths.TweetDir, cfg.Dataset.DedupTweets, logger)

	a.Windows, err = window.NewBuilder(prices, tweets, a.Summarizer, window.Config{
		SeqLen:     cfg.Dataset.SeqLen,
		TrainRatio: cfg.Dataset.TrainRatio,
	}, collector, logger)
	if err != nil {
		return err
	}

	a.Engine, err = prediction.NewEngine(completer, prediction.Config{
		Mode:             prediction.Mode(cfg.Evaluation.Mode),
		BatchSize:        cfg.Evaluation.BatchSize,
		RelatedCompanies: cfg.Evaluation.RelatedCompanies,
	}, collector, logger)
	if err != nil {
		return err
	}

	a.Runner = pipeline.NewRunner(
		a.Windows,
		a.Engine,
		runs,
		a.Inference,
		logger,
		pipeline.Config{
			ModelName:   cfg.LLM.Model,
			DatasetName: cfg.Dataset.Name,
			ResultsDir:  cfg.Evaluation.ResultsDir,
		},
	)
	return nil
}

// openDatabase connects and migrates the run database, or returns nil when
// none is configured. Migration failures are logged and the run continues.
func (a *App) openDatabase(ctx context.Context) (*sql.DB, error) {
	if !a.Config.Database.Enabled() {
		a.Logger.Info("run database disabled")
		return nil, nil
	}

	url, err := cloudsql.BuildDatabaseURL(a.Config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to build database URL: %w", err)
	}
	a.Logger.Info("database configuration", "config", cloudsql.ConnectionConfig(a.Config.Database))

	dbCfg := database.DefaultConfig()
	dbCfg.URL = url
	db, err := database.Connect(ctx, dbCfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func(context.Context) error { return db.Close() })
	a.Logger.Info("database connected")

	if err := database.RunMigrations(ctx, db, database.Migrations(), a.Logger); err != nil {
		a.Logger.Warn("failed to run migrations, continuing anyway", "error", err)
	}
	return db, nil
}

func (a *App) openDurableCache(ctx context.Context) (summarycache.Store, error) {
	cfg := a.Config.Summary
	switch cfg.CacheBackend {
	case "memory":
		a.Logger.Warn("summary cache is memory-only, summaries will not survive this run")
		return summarycache.NewMemoryStore(), nil
	case "sqlite":
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		store, err := summarycache.NewSQLiteStore(ctx, filepath.Join(cfg.CacheDir, sqliteCacheFile))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) error { return store.Close() })
		return store, nil
	default:
		store, err := summarycache.NewFileStore(cfg.CacheDir)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

// NewCompleter builds the configured provider client.
func NewCompleter(cfg config.LLMConfig, logger *slog.Logger) (llm.Completer, error) {
	retry := llm.DefaultRetryPolicy()
	retry.MaxRetries = cfg.MaxRetries

	switch cfg.Provider {
	case "openai":
		seed := cfg.Seed
		return llm.NewOpenAIClient(llm.OpenAIConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			Seed:        &seed,
			Retry:       retry,
		}, logger), nil
	case "anthropic":
		return llm.NewAnthropicClient(llm.AnthropicConfig{
			APIKey:      cfg.APIKey,
			Model:       cfg.Model,
			BaseURL:     cfg.BaseURL,
			Temperature: float64(cfg.Temperature),
			MaxTokens:   cfg.MaxTokens,
			Timeout:     cfg.Timeout,
			Retry:       retry,
		}, logger), nil
	case "stub":
		logger.Warn("using stub LLM, predictions are synthetic")
		return llm.NewStubClient(nil), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
