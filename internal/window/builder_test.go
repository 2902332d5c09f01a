package window

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/STRATINT/stockcast/internal/models"
	"github.com/STRATINT/stockcast/internal/summarizer"
	"github.com/shopspring/decimal"
)

type fakePrices map[string][]models.PriceRecord

func (f fakePrices) Tickers() ([]string, error) {
	var tickers []string
	for _, t := range []string{"AAPL", "GOOG", "TSLA"} {
		if _, ok := f[t]; ok {
			tickers = append(tickers, t)
		}
	}
	return tickers, nil
}

func (f fakePrices) Load(ticker string) ([]models.PriceRecord, error) {
	return f[ticker], nil
}

// fakeTweets returns one tweet per day unless the day is listed as silent.
type fakeTweets struct {
	silent map[string]bool
}

func (f fakeTweets) Texts(ticker string, date time.Time) ([]string, error) {
	if f.silent[date.Format(models.DateLayout)] {
		return nil, nil
	}
	return []string{ticker + " tweet"}, nil
}

// fakeSummaries summarizes a day as "<ticker> news <date>", marks
// uninformative days, and fails on listed days.
type fakeSummaries struct {
	uninformative map[string]bool
	failing       map[string]bool
	calls         int
}

func (f *fakeSummaries) Summarize(_ context.Context, ticker string, date time.Time, load summarizer.TweetLoader) (models.SummaryEntry, error) {
	f.calls++
	d := date.Format(models.DateLayout)
	key := models.SummaryKey{Model: "m", Method: "tdmllm", Ticker: ticker, Date: d}
	tweets, err := load()
	if err != nil {
		return models.SummaryEntry{}, err
	}
	if f.failing[d] {
		return models.SummaryEntry{}, errors.New("llm down")
	}
	if len(tweets) == 0 {
		return models.AbsentEntry(key), nil
	}
	entry := models.SummaryEntry{
		Ticker:      ticker,
		Date:        d,
		TweetData:   tweets,
		Summary:     fmt.Sprintf("%s news %s", ticker, d),
		Model:       key.Model,
		Method:      key.Method,
		Informative: !f.uninformative[d],
	}
	return entry, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func date(s string) time.Time {
	d, err := time.Parse(models.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func series(start string, changes ...string) []models.PriceRecord {
	records := make([]models.PriceRecord, len(changes))
	for i, c := range changes {
		records[i] = models.PriceRecord{
			Date:   date(start).AddDate(0, 0, i),
			Change: decimal.RequireFromString(c),
		}
	}
	return records
}

func TestWindowTextOrderAndFormat(t *testing.T) {
	summaries := &fakeSummaries{uninformative: map[string]bool{"2015-01-07": true}}
	tweets := fakeTweets{silent: map[string]bool{"2015-01-06": true}}
	b, err := NewBuilder(fakePrices{}, tweets, summaries, Config{SeqLen: 5, TrainRatio: 0.8}, nil, testLogger())
	if err != nil {
		t.Fatalf("NewBuilder() error: %v", err)
	}

	text, err := b.windowText(context.Background(), "AAPL", date("2015-01-10"))
	if err != nil {
		t.Fatalf("windowText() error: %v", err)
	}

	want := "2015-01-05\nAAPL news 2015-01-05\n\n" +
		"2015-01-08\nAAPL news 2015-01-08\n\n" +
		"2015-01-09\nAAPL news 2015-01-09"
	if text != want {
		t.Errorf("windowText() =\n%q\nwant\n%q", text, want)
	}
	if summaries.calls != 5 {
		t.Errorf("expected 5 daily lookups, got %d", summaries.calls)
	}
}

func TestLoadSplitsAndLabels(t *testing.T) {
	prices := fakePrices{
		"AAPL": series("2015-01-01", "0.01", "-0.02", "0", "0.03", "0.5", "-0.1", "0.2", "0.1", "-0.3", "0.0001"),
		"GOOG": series("2015-01-01", "0.01", "0.02", "-0.01", "0.02", "0.01"),
	}
	b, err := NewBuilder(prices, fakeTweets{}, &fakeSummaries{}, Config{SeqLen: 3, TrainRatio: 0.8}, nil, testLogger())
	if err != nil {
		t.Fatalf("NewBuilder() error: %v", err)
	}

	test, err := b.Load(context.Background(), models.SplitTest)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// AAPL: 10 rows, idx 8, targets 2015-01-09 and 2015-01-10. GOOG: 5 rows,
	// idx 4, target 2015-01-05.
	want := []struct {
		ticker string
		end    string
		label  models.Label
	}{
		{"AAPL", "2015-01-09", models.LabelNegative},
		{"AAPL", "2015-01-10", models.LabelPositive},
		{"GOOG", "2015-01-05", models.LabelPositive},
	}
	if len(test) != len(want) {
		t.Fatalf("expected %d samples, got %d", len(want), len(test))
	}
	for i, w := range want {
		got := test[i]
		if got.Ticker != w.ticker || got.WindowEndDate.Format(models.DateLayout) != w.end || got.Label != w.label {
			t.Errorf("sample %d = %s %s %s, want %s %s %s", i,
				got.Ticker, got.WindowEndDate.Format(models.DateLayout), got.Label, w.ticker, w.end, w.label)
		}
	}

	train, err := b.Load(context.Background(), models.SplitTrain)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(train) != 8+4 {
		t.Errorf("expected 12 train samples, got %d", len(train))
	}
	if train[2].Label != models.LabelNegative {
		t.Errorf("zero change must be Negative, got %s", train[2].Label)
	}
}

func TestLoadShortHistory(t *testing.T) {
	changes := []string{"0.01", "-0.02", "0.03"}
	tests := []struct {
		rows  int
		train int
		test  int
	}{
		{rows: 0, train: 0, test: 0},
		{rows: 1, train: 1, test: 0},
		{rows: 2, train: 2, test: 0},
		{rows: 3, train: 2, test: 1},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d rows", tt.rows), func(t *testing.T) {
			prices := fakePrices{"AAPL": series("2015-01-01", changes[:tt.rows]...)}
			b, err := NewBuilder(prices, fakeTweets{}, &fakeSummaries{}, Config{SeqLen: 5, TrainRatio: 0.8}, nil, testLogger())
			if err != nil {
				t.Fatalf("NewBuilder() error: %v", err)
			}

			train, err := b.Load(context.Background(), models.SplitTrain)
			if err != nil {
				t.Fatalf("Load(train) error: %v", err)
			}
			test, err := b.Load(context.Background(), models.SplitTest)
			if err != nil {
				t.Fatalf("Load(test) error: %v", err)
			}
			if len(train) != tt.train || len(test) != tt.test {
				t.Errorf("got %d train / %d test samples, want %d / %d", len(train), len(test), tt.train, tt.test)
			}
		})
	}
}

type brokenTweets struct{}

func (brokenTweets) Texts(string, time.Time) ([]string, error) {
	return nil, errors.New("permission denied")
}

func TestTweetReadFailureStopsLoad(t *testing.T) {
	prices := fakePrices{"AAPL": series("2015-01-01", "0.1", "0.1", "0.1")}
	b, err := NewBuilder(prices, brokenTweets{}, &fakeSummaries{}, Config{SeqLen: 2, TrainRatio: 0.8}, nil, testLogger())
	if err != nil {
		t.Fatalf("NewBuilder() error: %v", err)
	}

	if _, err := b.Load(context.Background(), models.SplitTrain); err == nil {
		t.Fatal("expected tweet read error to fail the load")
	}
}

func TestLoadDropsEmptyWindows(t *testing.T) {
	prices := fakePrices{"TSLA": series("2015-01-01", "0.1", "0.1", "0.1", "0.1", "0.1")}
	tweets := fakeTweets{silent: map[string]bool{
		"2014-12-29": true, "2014-12-30": true, "2014-12-31": true,
		"2015-01-01": true, "2015-01-02": true, "2015-01-03": true,
	}}
	b, err := NewBuilder(prices, tweets, &fakeSummaries{}, Config{SeqLen: 3, TrainRatio: 0.8}, nil, testLogger())
	if err != nil {
		t.Fatalf("NewBuilder() error: %v", err)
	}

	samples, err := b.Load(context.Background(), models.SplitTrain)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	// Train targets are 01-01..01-04; every window falls inside the silent
	// range.
	if len(samples) != 0 {
		t.Errorf("expected all windows to be empty, got %d samples", len(samples))
	}
}

func TestSummaryFailureSkipsDay(t *testing.T) {
	summaries := &fakeSummaries{failing: map[string]bool{"2015-01-08": true}}
	b, err := NewBuilder(fakePrices{}, fakeTweets{}, summaries, Config{SeqLen: 2, TrainRatio: 0.8}, nil, testLogger())
	if err != nil {
		t.Fatalf("NewBuilder() error: %v", err)
	}

	text, err := b.windowText(context.Background(), "AAPL", date("2015-01-10"))
	if err != nil {
		t.Fatalf("windowText() error: %v", err)
	}
	if text != "2015-01-09\nAAPL news 2015-01-09" {
		t.Errorf("unexpected text %q", text)
	}
}

func TestLoadHonorsCancellation(t *testing.T) {
	prices := fakePrices{"AAPL": series("2015-01-01", "0.1", "0.1", "0.1", "0.1", "0.1")}
	b, err := NewBuilder(prices, fakeTweets{}, &fakeSummaries{}, Config{SeqLen: 2, TrainRatio: 0.8}, nil, testLogger())
	if err != nil {
		t.Fatalf("NewBuilder() error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := b.Load(ctx, models.SplitTrain); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestNewBuilderValidatesConfig(t *testing.T) {
	if _, err := NewBuilder(fakePrices{}, fakeTweets{}, &fakeSummaries{}, Config{SeqLen: 0, TrainRatio: 0.8}, nil, testLogger()); err == nil {
		t.Error("expected error for zero window length")
	}
	if _, err := NewBuilder(fakePrices{}, fakeTweets{}, &fakeSummaries{}, Config{SeqLen: 5, TrainRatio: 1}, nil, testLogger()); err == nil {
		t.Error("expected error for ratio of 1")
	}
}
