// Package window assembles trailing-window summary samples per ticker and
// trading day.
package window

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/STRATINT/stockcast/internal/dataset"
	"github.com/STRATINT/stockcast/internal/metrics"
	"github.com/STRATINT/stockcast/internal/models"
	"github.com/STRATINT/stockcast/internal/summarizer"
	"github.com/STRATINT/stockcast/internal/tracing"
	"go.opentelemetry.io/otel/attribute"
)

// PriceSource lists tickers and returns chronological series.
type PriceSource interface {
	Tickers() ([]string, error)
	Load(ticker string) ([]models.PriceRecord, error)
}

// TweetSource returns a day's raw texts for a ticker.
type TweetSource interface {
	Texts(ticker string, date time.Time) ([]string, error)
}

// SummarySource resolves the summary entry of a ticker and day. load is only
// called when the entry is not cached.
type SummarySource interface {
	Summarize(ctx context.Context, ticker string, date time.Time, load summarizer.TweetLoader) (models.SummaryEntry, error)
}

// Config holds the window length and split ratio.
type Config struct {
	SeqLen     int
	TrainRatio float64
}

// Builder produces WindowSamples from prices, tweets and summaries.
type Builder struct {
	prices    PriceSource
	tweets    TweetSource
	summaries SummarySource
	cfg       Config
	collector *metrics.PipelineCollector
	logger    *slog.Logger
}

// NewBuilder creates a Builder. collector may be nil.
func NewBuilder(prices PriceSource, tweets TweetSource, summaries SummarySource, cfg Config, collector *metrics.PipelineCollector, logger *slog.Logger) (*Builder, error) {
	if cfg.SeqLen <= 0 {
		return nil, fmt.Errorf("window length must be positive, got %d", cfg.SeqLen)
	}
	if cfg.TrainRatio <= 0 || cfg.TrainRatio >= 1 {
		return nil, fmt.Errorf("train ratio must be between 0 and 1, got %v", cfg.TrainRatio)
	}

	return &Builder{
		prices:    prices,
		tweets:    tweets,
		summaries: summaries,
		cfg:       cfg,
		collector: collector,
		logger:    logger,
	}, nil
}

// Load builds the samples of split for every ticker, in ticker order then
// date order. Days whose window holds no informative summary are dropped.
func (b *Builder) Load(ctx context.Context, split models.Split) (samples []models.WindowSample, err error) {
	ctx, span := tracing.Start(ctx, "window.load", attribute.String("split", string(split)))
	defer func() { tracing.End(span, err) }()

	tickers, err := b.prices.Tickers()
	if err != nil {
		return nil, err
	}

	for _, ticker := range tickers {
		tickerSamples, err := b.loadTicker(ctx, ticker, split)
		if err != nil {
			return nil, err
		}
		samples = append(samples, tickerSamples...)
	}

	span.SetAttributes(attribute.Int("samples", len(samples)))
	b.logger.Info("windows loaded", "split", split, "tickers", len(tickers), "samples", len(samples))
	return samples, nil
}

func (b *Builder) loadTicker(ctx context.Context, ticker string, split models.Split) ([]models.WindowSample, error) {
	series, err := b.prices.Load(ticker)
	if err != nil {
		return nil, err
	}

	targets := dataset.SplitRecords(series, split, b.cfg.TrainRatio)
	samples := make([]models.WindowSample, 0, len(targets))
	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := b.windowText(ctx, ticker, target.Date)
		if err != nil {
			return nil, err
		}
		if text == "" {
			b.collector.Sample(string(split), "empty")
			continue
		}

		b.collector.Sample(string(split), "emitted")
		samples = append(samples, models.WindowSample{
			Ticker:        ticker,
			Label:         target.Label(),
			WindowEndDate: target.Date,
			Summary:       text,
		})
	}

	b.logger.Debug("ticker windows built", "ticker", ticker, "split", split, "targets", len(targets), "samples", len(samples))
	return samples, nil
}

// windowText concatenates "<date>\n<summary>\n\n" for each informative day in
// [end - SeqLen days, end) and right-trims the result.
func (b *Builder) windowText(ctx context.Context, ticker string, end time.Time) (string, error) {
	var sb strings.Builder
	for day := end.AddDate(0, 0, -b.cfg.SeqLen); day.Before(end); day = day.AddDate(0, 0, 1) {
		var readErr error
		entry, err := b.summaries.Summarize(ctx, ticker, day, func() ([]string, error) {
			texts, err := b.tweets.Texts(ticker, day)
			readErr = err
			return texts, err
		})
		if readErr != nil {
			return "", readErr
		}
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			b.logger.Warn("summary unavailable, skipping day",
				"ticker", ticker,
				"date", day.Format(models.DateLayout),
				"error", err,
			)
			continue
		}
		if !entry.Informative || entry.Summary == "" {
			continue
		}

		sb.WriteString(day.Format(models.DateLayout))
		sb.WriteString("\n")
		sb.WriteString(entry.Summary)
		sb.WriteString("\n\n")
	}
	return strings.TrimRightFunc(sb.String(), unicode.IsSpace), nil
}
