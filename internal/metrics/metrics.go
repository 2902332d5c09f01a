package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "stockcast"

// PipelineCollector exposes Prometheus metrics for cache, LLM and evaluation
// activity. A nil collector is valid and records nothing.
type PipelineCollector struct {
	registry      *prometheus.Registry
	cacheLookups  *prometheus.CounterVec
	llmCalls      *prometheus.CounterVec
	llmDuration   *prometheus.HistogramVec
	llmTokens     *prometheus.CounterVec
	samples       *prometheus.CounterVec
	predictions   *prometheus.CounterVec
	batchFallback prometheus.Counter
}

// NewPipelineCollector constructs a collector backed by its own registry.
func NewPipelineCollector() (*PipelineCollector, error) {
	registry := prometheus.NewRegistry()

	c := &PipelineCollector{
		registry: registry,
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "summary_cache",
			Name:      "lookups_total",
			Help:      "Summary cache lookups by tier and result.",
		}, []string{"tier", "result"}),
		llmCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "calls_total",
			Help:      "LLM calls by operation and status.",
		}, []string{"operation", "status"}),
		llmDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "call_duration_seconds",
			Help:      "Latency distribution for LLM calls.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		}, []string{"operation"}),
		llmTokens: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by LLM calls.",
		}, []string{"operation", "direction"}),
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "window",
			Name:      "samples_total",
			Help:      "Window samples emitted or skipped by split.",
		}, []string{"split", "outcome"}),
		predictions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "labels_total",
			Help:      "Extracted prediction labels.",
		}, []string{"label"}),
		batchFallback: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "prediction",
			Name:      "batch_fallbacks_total",
			Help:      "Batches that failed and were retried one prompt at a time.",
		}),
	}

	for _, collector := range []prometheus.Collector{
		c.cacheLookups, c.llmCalls, c.llmDuration, c.llmTokens, c.samples, c.predictions, c.batchFallback,
	} {
		if err := registry.Register(collector); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Handler returns an HTTP handler for exposing Prometheus metrics.
func (c *PipelineCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// CacheLookup records a summary cache lookup. tier is memory or durable,
// result is hit, miss, or corrupt.
func (c *PipelineCollector) CacheLookup(tier, result string) {
	if c == nil {
		return
	}
	c.cacheLookups.WithLabelValues(tier, result).Inc()
}

// LLMCall records one completed LLM request.
func (c *PipelineCollector) LLMCall(operation, status string, latency time.Duration, inputTokens, outputTokens int) {
	if c == nil {
		return
	}
	c.llmCalls.WithLabelValues(operation, status).Inc()
	c.llmDuration.WithLabelValues(operation).Observe(latency.Seconds())
	if inputTokens > 0 {
		c.llmTokens.WithLabelValues(operation, "input").Add(float64(inputTokens))
	}
	if outputTokens > 0 {
		c.llmTokens.WithLabelValues(operation, "output").Add(float64(outputTokens))
	}
}

// Sample records a window outcome (emitted or skipped).
func (c *PipelineCollector) Sample(split, outcome string) {
	if c == nil {
		return
	}
	c.samples.WithLabelValues(split, outcome).Inc()
}

// Prediction records an extracted label.
func (c *PipelineCollector) Prediction(label string) {
	if c == nil {
		return
	}
	c.predictions.WithLabelValues(label).Inc()
}

// BatchFallback records a batch that degraded to serial calls.
func (c *PipelineCollector) BatchFallback() {
	if c == nil {
		return
	}
	c.batchFallback.Inc()
}

// Serve exposes the handler on addr until ctx is cancelled.
func (c *PipelineCollector) Serve(ctx context.Context, addr string, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	go func() {
		logger.Info("metrics listener started", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics listener failed", "error", err)
		}
	}()
}
