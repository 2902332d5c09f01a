package dataset

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/STRATINT/stockcast/internal/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("MkdirAll() error: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
}

func TestResolveKnownDataset(t *testing.T) {
	paths, err := Resolve("ACL18", "/data", "", "")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if paths.PriceDir != "/data/ACL18/stocknet-dataset/price/preprocessed" {
		t.Errorf("unexpected price dir %q", paths.PriceDir)
	}
	if paths.TweetDir != "/data/ACL18/stocknet-dataset/tweet/raw" {
		t.Errorf("unexpected tweet dir %q", paths.TweetDir)
	}

	paths, err = Resolve("cmin", "/data", "", "/custom/news")
	if err != nil {
		t.Fatalf("Resolve() error: %v", err)
	}
	if paths.PriceDir != "/data/CMIN/CMIN-Dataset/CMIN-US/price/preprocessed" || paths.TweetDir != "/custom/news" {
		t.Errorf("unexpected paths %+v", paths)
	}
}

func TestResolveUnknownDataset(t *testing.T) {
	if _, err := Resolve("NASDAQ100", "/data", "", ""); err == nil {
		t.Fatal("expected error for unknown dataset")
	}

	paths, err := Resolve("custom", "/data", "/p", "/t")
	if err != nil {
		t.Fatalf("explicit directories should not need a known name: %v", err)
	}
	if paths.PriceDir != "/p" || paths.TweetDir != "/t" {
		t.Errorf("unexpected paths %+v", paths)
	}
}

func TestPriceStoreLoadReversesAndSkipsBadRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "AAPL.txt"), strings.Join([]string{
		"2015-01-06 -0.004 0.01 -0.02",
		"not-a-date 0.1",
		"2015-01-05 0.0",
		"2015-01-02 abc",
		"",
		"2015-01-01 0.0123",
	}, "\n"))
	writeFile(t, filepath.Join(dir, "GOOG.txt"), "2015-01-01 0.1\n")
	writeFile(t, filepath.Join(dir, "README.md"), "ignored")

	store, err := NewPriceStore(dir, testLogger())
	if err != nil {
		t.Fatalf("NewPriceStore() error: %v", err)
	}

	tickers, err := store.Tickers()
	if err != nil {
		t.Fatalf("Tickers() error: %v", err)
	}
	if !reflect.DeepEqual(tickers, []string{"AAPL", "GOOG"}) {
		t.Errorf("unexpected tickers %v", tickers)
	}

	records, err := store.Load("AAPL")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("expected 3 parsed rows, got %d", len(records))
	}

	wantDates := []string{"2015-01-01", "2015-01-05", "2015-01-06"}
	wantLabels := []models.Label{models.LabelPositive, models.LabelNegative, models.LabelNegative}
	for i, record := range records {
		if got := record.Date.Format(models.DateLayout); got != wantDates[i] {
			t.Errorf("record %d date = %s, want %s", i, got, wantDates[i])
		}
		if got := record.Label(); got != wantLabels[i] {
			t.Errorf("record %d label = %s, want %s", i, got, wantLabels[i])
		}
	}
}

func TestNewPriceStoreRequiresDirectory(t *testing.T) {
	if _, err := NewPriceStore(filepath.Join(t.TempDir(), "missing"), testLogger()); err == nil {
		t.Fatal("expected error for missing directory")
	}
}

func TestSplitRecords(t *testing.T) {
	records := make([]models.PriceRecord, 10)
	start := time.Date(2015, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range records {
		records[i] = models.PriceRecord{Date: start.AddDate(0, 0, i)}
	}

	train := SplitRecords(records, models.SplitTrain, 0.8)
	test := SplitRecords(records, models.SplitTest, 0.8)
	if len(train) != 8 || len(test) != 2 {
		t.Fatalf("expected 8/2 split, got %d/%d", len(train), len(test))
	}
	if !train[7].Date.Before(test[0].Date) {
		t.Error("train rows must precede test rows")
	}

	tests := []struct {
		n     int
		ratio float64
		want  int
	}{
		{0, 0.8, 0},
		{1, 0.8, 1},
		{3, 0.8, 2},
		{7, 0.8, 6},
		{504, 0.8, 403},
		{5, 0.5, 2},
		{7, 0.5, 4},
	}
	for _, tt := range tests {
		if got := SplitIndex(tt.n, tt.ratio); got != tt.want {
			t.Errorf("SplitIndex(%d, %v) = %d, want %d", tt.n, tt.ratio, got, tt.want)
		}
	}
}

func TestTweetStoreTexts(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "AAPL", "2015-01-02"), strings.Join([]string{
		`{"text": "$AAPL record quarter", "user_id_str": "1"}`,
		`{broken json`,
		`{"created_at": "Fri Jan 02"}`,
		``,
		`{"text": "apple watch preorders open", "entities": {"hashtags": []}}`,
	}, "\n"))

	store := NewTweetStore(dir, false, testLogger())
	day := time.Date(2015, 1, 2, 0, 0, 0, 0, time.UTC)

	texts, err := store.Texts("AAPL", day)
	if err != nil {
		t.Fatalf("Texts() error: %v", err)
	}
	want := []string{"$AAPL record quarter", "apple watch preorders open"}
	if !reflect.DeepEqual(texts, want) {
		t.Errorf("Texts() = %v, want %v", texts, want)
	}

	missing, err := store.Texts("AAPL", day.AddDate(0, 0, 1))
	if err != nil {
		t.Fatalf("missing file should not error: %v", err)
	}
	if len(missing) != 0 {
		t.Errorf("expected no tweets for missing file, got %v", missing)
	}
}
