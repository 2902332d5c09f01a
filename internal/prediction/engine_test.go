package prediction

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/STRATINT/stockcast/internal/llm"
	"github.com/STRATINT/stockcast/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSamples(n int) []models.WindowSample {
	tickers := []string{"AAPL", "GOOG", "TSLA", "AMZN"}
	start := time.Date(2015, 10, 1, 0, 0, 0, 0, time.UTC)
	samples := make([]models.WindowSample, n)
	for i := range samples {
		end := start.AddDate(0, 0, i)
		samples[i] = models.WindowSample{
			Ticker:        tickers[i%len(tickers)],
			Label:         models.LabelPositive,
			WindowEndDate: end,
			Summary:       end.Format(models.DateLayout) + "\nnews item " + tickers[i%len(tickers)],
		}
	}
	return samples
}

func newEngine(t *testing.T, completer llm.Completer, cfg Config) *Engine {
	t.Helper()
	e, err := NewEngine(completer, cfg, nil, testLogger())
	if err != nil {
		t.Fatalf("NewEngine() error: %v", err)
	}
	return e
}

func TestBatchAndSerialAgree(t *testing.T) {
	samples := testSamples(11)

	serialStub := llm.NewStubClient(llm.DirectionalResponse)
	serial, err := newEngine(t, serialStub, Config{Mode: ModeSerial}).Predict(context.Background(), samples)
	if err != nil {
		t.Fatalf("serial Predict() error: %v", err)
	}

	batchStub := llm.NewStubClient(llm.DirectionalResponse)
	batch, err := newEngine(t, batchStub, Config{Mode: ModeBatch, BatchSize: 4}).Predict(context.Background(), samples)
	if err != nil {
		t.Fatalf("batch Predict() error: %v", err)
	}

	if len(serial) != len(samples) || len(batch) != len(samples) {
		t.Fatalf("expected %d records, got serial=%d batch=%d", len(samples), len(serial), len(batch))
	}
	for i := range samples {
		if serial[i].Predicted != batch[i].Predicted || serial[i].RawOutput != batch[i].RawOutput {
			t.Errorf("record %d differs: serial=%s batch=%s", i, serial[i].Predicted, batch[i].Predicted)
		}
		if batch[i].Ticker != samples[i].Ticker || batch[i].Sample.WindowEndDate != samples[i].WindowEndDate {
			t.Errorf("record %d out of order", i)
		}
	}

	// Two stages of ceil(11/4) batches each.
	if batchStub.BatchCalls() != 6 {
		t.Errorf("expected 6 batch calls, got %d", batchStub.BatchCalls())
	}
	if batchStub.Calls() != 0 {
		t.Errorf("expected no single calls in batch mode, got %d", batchStub.Calls())
	}
	if serialStub.Calls() != 22 {
		t.Errorf("expected 22 single calls in serial mode, got %d", serialStub.Calls())
	}
}

func TestBatchFailureFallsBackToSerial(t *testing.T) {
	samples := testSamples(5)

	stub := llm.NewStubClient(llm.DirectionalResponse)
	stub.BatchErr = func([]string) error { return errors.New("out of memory") }

	records, err := newEngine(t, stub, Config{Mode: ModeBatch, BatchSize: 2}).Predict(context.Background(), samples)
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}

	reference, err := newEngine(t, llm.NewStubClient(llm.DirectionalResponse), Config{Mode: ModeSerial}).Predict(context.Background(), samples)
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}

	for i := range records {
		if records[i].RawOutput != reference[i].RawOutput {
			t.Errorf("record %d: fallback output %q differs from serial %q", i, records[i].RawOutput, reference[i].RawOutput)
		}
	}
	if stub.Calls() != 10 {
		t.Errorf("expected every prompt to be retried singly, got %d calls", stub.Calls())
	}
}

func TestFailedPromptYieldsSentinel(t *testing.T) {
	samples := testSamples(3)
	stub := llm.NewStubClient(func(system, prompt string) (string, error) {
		if system == ForecastSystemPrompt && strings.Contains(prompt, "news item GOOG") {
			return "", errors.New("context length exceeded")
		}
		return llm.DirectionalResponse(system, prompt)
	})

	records, err := newEngine(t, stub, Config{Mode: ModeBatch, BatchSize: 8}).Predict(context.Background(), samples)
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}

	if records[1].RawOutput != InferenceError {
		t.Errorf("expected sentinel for failed prompt, got %q", records[1].RawOutput)
	}
	if records[1].Predicted != models.LabelUnknown {
		t.Errorf("expected Unknown for failed prompt, got %s", records[1].Predicted)
	}
	if records[1].Correct() {
		t.Error("Unknown prediction must not count as correct")
	}
	for _, i := range []int{0, 2} {
		if records[i].RawOutput == InferenceError {
			t.Errorf("record %d should have succeeded", i)
		}
	}
}

func TestForecastPromptCarriesProfileAndSummary(t *testing.T) {
	samples := testSamples(1)
	stub := llm.NewStubClient(func(system, prompt string) (string, error) {
		switch {
		case strings.HasPrefix(prompt, "Generate a short description"):
			return "Description: Apple designs phones.", nil
		case strings.HasPrefix(prompt, "List the top 3 NASDAQ"):
			return "MSFT, GOOG, AMZN", nil
		default:
			return "Stock Return: 1% (up)", nil
		}
	})

	records, err := newEngine(t, stub, Config{Mode: ModeSerial, RelatedCompanies: true}).Predict(context.Background(), samples)
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}

	prompts := stub.Prompts()
	if len(prompts) != 3 {
		t.Fatalf("expected 3 prompts, got %d", len(prompts))
	}
	forecast := prompts[2]
	for _, want := range []string{
		"Company Profile: Description: Apple designs phones.\n\nSimilar Companies: MSFT, GOOG, AMZN",
		"Recent News Summary:\n" + samples[0].Summary,
		"Stock Return: [number]% ([up/down])",
	} {
		if !strings.Contains(forecast, want) {
			t.Errorf("forecast prompt missing %q:\n%s", want, forecast)
		}
	}
	if records[0].Predicted != models.LabelPositive {
		t.Errorf("expected Positive, got %s", records[0].Predicted)
	}
}

func TestPredictStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(t, llm.NewStubClient(nil), Config{Mode: ModeSerial}).Predict(ctx, testSamples(2))
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewEngineValidatesConfig(t *testing.T) {
	if _, err := NewEngine(llm.NewStubClient(nil), Config{Mode: "parallel"}, nil, testLogger()); err == nil {
		t.Error("expected error for unknown mode")
	}
	if _, err := NewEngine(llm.NewStubClient(nil), Config{Mode: ModeBatch}, nil, testLogger()); err == nil {
		t.Error("expected error for zero batch size")
	}
}
