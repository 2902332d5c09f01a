// Package summarizer turns a day's raw tweets for a ticker into a cached
// summary entry.
package summarizer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/STRATINT/stockcast/internal/llm"
	"github.com/STRATINT/stockcast/internal/models"
	"github.com/STRATINT/stockcast/internal/summarycache"
)

// Config selects the model key, prompt family and context budget.
type Config struct {
	Model       string
	Method      Method
	TokenBudget int // 0 disables truncation
}

// Summarizer generates summaries through a Completer and memoizes them in a
// Cache.
type Summarizer struct {
	completer llm.Completer
	cache     *summarycache.Cache
	template  Template
	cfg       Config
	audits    []AuditLog
	logger    *slog.Logger
}

// New creates a Summarizer. Each audit log receives every attempt.
func New(completer llm.Completer, cache *summarycache.Cache, cfg Config, logger *slog.Logger, audits ...AuditLog) (*Summarizer, error) {
	template, err := TemplateFor(cfg.Method)
	if err != nil {
		return nil, err
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("summarizer model is required")
	}

	return &Summarizer{
		completer: completer,
		cache:     cache,
		template:  template,
		cfg:       cfg,
		audits:    audits,
		logger:    logger,
	}, nil
}

// Key returns the cache key of a ticker and day under this summarizer.
func (s *Summarizer) Key(ticker string, date time.Time) models.SummaryKey {
	return models.SummaryKey{
		Model:  s.cfg.Model,
		Method: string(s.cfg.Method),
		Ticker: ticker,
		Date:   date.Format(models.DateLayout),
	}
}

// TweetLoader reads a day's tweets. It is only called on a cache miss.
type TweetLoader func() ([]string, error)

// Tweets wraps an already loaded slice.
func Tweets(texts []string) TweetLoader {
	return func() ([]string, error) { return texts, nil }
}

// Summarize returns the entry for ticker on date, generating it on a cache
// miss. A day without tweets yields an absent entry without an LLM call.
// A failed load or completion is returned as an error and nothing is cached.
func (s *Summarizer) Summarize(ctx context.Context, ticker string, date time.Time, load TweetLoader) (models.SummaryEntry, error) {
	key := s.Key(ticker, date)
	return s.cache.Resolve(ctx, key, func(ctx context.Context) (models.SummaryEntry, error) {
		tweets, err := load()
		if err != nil {
			return models.SummaryEntry{}, fmt.Errorf("failed to read tweets for %s: %w", key, err)
		}
		return s.generate(ctx, key, tweets)
	})
}

func (s *Summarizer) generate(ctx context.Context, key models.SummaryKey, tweets []string) (models.SummaryEntry, error) {
	if len(tweets) == 0 {
		return models.AbsentEntry(key), nil
	}

	prompt, kept := s.fitBudget(key, tweets)
	if len(kept) == 0 {
		return models.AbsentEntry(key), nil
	}

	result := s.completer.Complete(llm.WithOperation(ctx, "summarize"), "", prompt)
	if !result.OK() {
		return models.SummaryEntry{}, fmt.Errorf("failed to summarize %s: %w", key, result.Err)
	}

	summary := s.template.Clean(result.Text)
	entry := models.SummaryEntry{
		Ticker:      key.Ticker,
		Date:        key.Date,
		TweetData:   kept,
		Prompt:      prompt,
		Summary:     summary,
		Model:       key.Model,
		Method:      key.Method,
		Informative: IsInformative(summary),
	}

	s.logger.Debug("summary generated",
		"ticker", key.Ticker,
		"date", key.Date,
		"tweets", len(kept),
		"informative", entry.Informative,
	)

	s.audit(ctx, entry, result.Text)
	return entry, nil
}

// fitBudget renders the prompt, dropping trailing tweets while the estimate
// is at or over the budget.
func (s *Summarizer) fitBudget(key models.SummaryKey, tweets []string) (string, []string) {
	kept := tweets
	prompt := s.template.Render(PromptInput{Ticker: key.Ticker, Tweets: kept})
	if s.cfg.TokenBudget <= 0 {
		return prompt, kept
	}

	for len(kept) > 0 && llm.EstimateTokens(prompt) >= s.cfg.TokenBudget {
		kept = kept[:len(kept)-1]
		prompt = s.template.Render(PromptInput{Ticker: key.Ticker, Tweets: kept})
	}

	switch {
	case len(kept) == 0:
		s.logger.Warn("prompt exceeds token budget without any tweets, skipping day",
			"ticker", key.Ticker,
			"date", key.Date,
			"budget", s.cfg.TokenBudget,
		)
	case len(kept) < len(tweets):
		s.logger.Warn("truncated tweets to fit token budget",
			"ticker", key.Ticker,
			"date", key.Date,
			"dropped", len(tweets)-len(kept),
			"budget", s.cfg.TokenBudget,
		)
	}

	return prompt, kept
}

// audit records the attempt with the completion text as returned, before
// Clean.
func (s *Summarizer) audit(ctx context.Context, entry models.SummaryEntry, raw string) {
	attempt := models.SummaryAttempt{
		Ticker:      entry.Ticker,
		Date:        entry.Date,
		TweetData:   entry.TweetData,
		Prompt:      entry.Prompt,
		Summary:     entry.Summary,
		RawOutput:   raw,
		Model:       entry.Model,
		Method:      entry.Method,
		Informative: entry.Informative,
		CreatedAt:   time.Now().UTC(),
	}

	for _, log := range s.audits {
		if err := log.Record(ctx, attempt); err != nil {
			s.logger.Error("failed to record summary attempt",
				"ticker", entry.Ticker,
				"date", entry.Date,
				"error", err,
			)
		}
	}
}
