package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/STRATINT/stockcast/internal/app"
	"github.com/STRATINT/stockcast/internal/config"
	"github.com/STRATINT/stockcast/internal/logging"
	"github.com/STRATINT/stockcast/internal/models"
	"github.com/joho/godotenv"
)

// summarize fills the summary cache for both splits without running any
// forecasts, so later evaluations only pay for prediction calls.
func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stdout, nil)).Error("failed to init logger", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize", "error", err)
		os.Exit(1)
	}

	counts, err := a.Runner.Warm(ctx, models.SplitTrain, models.SplitTest)
	if closeErr := a.Close(context.WithoutCancel(ctx)); closeErr != nil {
		logger.Warn("shutdown incomplete", "error", closeErr)
	}
	if err != nil {
		logger.Error("cache warm-up failed", "error", err)
		os.Exit(1)
	}

	logger.Info("summary cache warmed",
		"model", cfg.LLM.Model,
		"method", cfg.Summary.Method,
		"train_samples", counts[models.SplitTrain],
		"test_samples", counts[models.SplitTest],
		"cached_entries", a.Cache.Len(),
	)
}
