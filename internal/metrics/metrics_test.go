package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPipelineCollectorRecordsMetrics(t *testing.T) {
	collector, err := NewPipelineCollector()
	if err != nil {
		t.Fatalf("NewPipelineCollector returned error: %v", err)
	}

	collector.CacheLookup("memory", "miss")
	collector.CacheLookup("durable", "hit")
	collector.CacheLookup("durable", "hit")
	collector.LLMCall("forecast", "success", 1500*time.Millisecond, 120, 40)
	collector.Sample("test", "emitted")
	collector.Prediction("Positive")
	collector.BatchFallback()

	if got := testutil.ToFloat64(collector.cacheLookups.WithLabelValues("durable", "hit")); got != 2 {
		t.Errorf("durable hits = %v, want 2", got)
	}
	if got := testutil.ToFloat64(collector.llmTokens.WithLabelValues("forecast", "input")); got != 120 {
		t.Errorf("input tokens = %v, want 120", got)
	}
	if got := testutil.ToFloat64(collector.batchFallback); got != 1 {
		t.Errorf("batch fallbacks = %v, want 1", got)
	}

	rr := httptest.NewRecorder()
	collector.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected metrics handler to return 200, got %d", rr.Code)
	}

	body := rr.Body.String()
	if !strings.Contains(body, `stockcast_llm_calls_total{operation="forecast",status="success"} 1`) {
		t.Fatalf("llm calls metric not recorded, body=%q", body)
	}
	if !strings.Contains(body, `stockcast_llm_call_duration_seconds_count{operation="forecast"} 1`) {
		t.Fatalf("llm duration metric not recorded, body=%q", body)
	}
	if !strings.Contains(body, `stockcast_window_samples_total{outcome="emitted",split="test"} 1`) {
		t.Fatalf("samples metric not recorded, body=%q", body)
	}
}

func TestNilCollectorIsNoop(t *testing.T) {
	var collector *PipelineCollector

	collector.CacheLookup("memory", "hit")
	collector.LLMCall("summarize", "error", time.Second, 0, 0)
	collector.Sample("train", "skipped")
	collector.Prediction("Unknown")
	collector.BatchFallback()
}
