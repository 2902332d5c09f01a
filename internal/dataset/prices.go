package dataset

import (
	"bufio"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/STRATINT/stockcast/internal/models"
	"github.com/shopspring/decimal"
)

const priceFileExt = ".txt"

// PriceStore reads per-ticker price files from a directory. Each file is
// named <TICKER>.txt and lists rows "<date> <change> ..." newest first.
type PriceStore struct {
	dir    string
	logger *slog.Logger
}

// NewPriceStore verifies dir is a readable directory.
func NewPriceStore(dir string, logger *slog.Logger) (*PriceStore, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open price directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("price path %s is not a directory", dir)
	}
	return &PriceStore{dir: dir, logger: logger}, nil
}

// Tickers lists the tickers with a price file, sorted.
func (s *PriceStore) Tickers() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list price directory: %w", err)
	}

	var tickers []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, priceFileExt) {
			continue
		}
		tickers = append(tickers, strings.TrimSuffix(name, priceFileExt))
	}
	sort.Strings(tickers)
	return tickers, nil
}

// Load returns a ticker's series in chronological order. Rows that do not
// parse are skipped.
func (s *PriceStore) Load(ticker string) ([]models.PriceRecord, error) {
	path := filepath.Join(s.dir, ticker+priceFileExt)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open price file for %s: %w", ticker, err)
	}
	defer f.Close()

	var records []models.PriceRecord
	skipped := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		record, ok := parsePriceRow(line)
		if !ok {
			skipped++
			continue
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read price file for %s: %w", ticker, err)
	}

	if skipped > 0 {
		s.logger.Warn("skipped unparseable price rows", "ticker", ticker, "rows", skipped)
	}

	slices.Reverse(records)
	return records, nil
}

func parsePriceRow(line string) (models.PriceRecord, bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return models.PriceRecord{}, false
	}

	date, err := time.Parse(models.DateLayout, fields[0])
	if err != nil {
		return models.PriceRecord{}, false
	}
	change, err := decimal.NewFromString(fields[1])
	if err != nil {
		return models.PriceRecord{}, false
	}
	return models.PriceRecord{Date: date, Change: change}, true
}

// SplitIndex is the first test index of an n-row chronological series,
// rounding half to even.
func SplitIndex(n int, trainRatio float64) int {
	return int(math.RoundToEven(trainRatio * float64(n)))
}

// SplitRecords returns the train [0, idx) or test [idx, n) portion of a
// chronological series.
func SplitRecords(records []models.PriceRecord, split models.Split, trainRatio float64) []models.PriceRecord {
	idx := SplitIndex(len(records), trainRatio)
	if split == models.SplitTrain {
		return records[:idx]
	}
	return records[idx:]
}
