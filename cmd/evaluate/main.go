package main

import (
	"context"
	"fmt"
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

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("evaluation failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	split, ok := models.ParseSplit(cfg.Evaluation.Split)
	if !ok {
		return fmt.Errorf("unknown evaluation split %q", cfg.Evaluation.Split)
	}

	logger.Info("starting evaluation",
		"provider", cfg.LLM.Provider,
		"model", cfg.LLM.Model,
		"dataset", cfg.Dataset.Name,
		"split", split,
		"seq_len", cfg.Dataset.SeqLen,
		"mode", cfg.Evaluation.Mode,
		"batch_size", cfg.Evaluation.BatchSize,
		"seed", cfg.LLM.Seed,
	)

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(context.WithoutCancel(ctx)); err != nil {
			logger.Warn("shutdown incomplete", "error", err)
		}
	}()

	result, err := a.Runner.Run(ctx, split)
	if err != nil {
		return err
	}

	logger.Info("report saved",
		"run_id", result.RunID,
		"path", result.ArtifactPath,
		"accuracy", result.Report.Accuracy,
		"mcc", result.Report.MCC,
	)

	if a.Usage != nil {
		a.Inference.Flush()
		usage, err := a.Usage.UsageByOperation(ctx, result.RunID)
		if err != nil {
			logger.Warn("failed to read inference usage", "error", err)
			return nil
		}
		for _, u := range usage {
			logger.Info("inference usage",
				"operation", u.Operation,
				"calls", u.Calls,
				"failed", u.FailedCalls,
				"tokens", u.Tokens,
				"cost_usd", u.CostUSD,
				"avg_latency_ms", u.AvgLatencyMs,
			)
		}
	}
	return nil
}
