package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/STRATINT/stockcast/internal/models"
	"github.com/tidwall/gjson"
)

// maxTweetLine bounds a single JSON line; raw tweet objects carry large
// nested user and entity blocks.
const maxTweetLine = 4 << 20

// TweetStore reads <dir>/<ticker>/<date> files holding one JSON object per
// line with a "text" field.
type TweetStore struct {
	dir    string
	dedup  bool
	logger *slog.Logger
}

// NewTweetStore returns a store rooted at dir. A missing root only means no
// tweets, so it is not checked here. With dedup set, reposts of a text
// already seen that day are dropped.
func NewTweetStore(dir string, dedup bool, logger *slog.Logger) *TweetStore {
	return &TweetStore{dir: dir, dedup: dedup, logger: logger}
}

// Texts returns the tweet texts for ticker on date in file order. A missing
// file yields no tweets. Lines that are not JSON or lack text are skipped.
func (s *TweetStore) Texts(ticker string, date time.Time) ([]string, error) {
	path := filepath.Join(s.dir, ticker, date.Format(models.DateLayout))
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open tweets for %s on %s: %w", ticker, date.Format(models.DateLayout), err)
	}
	defer f.Close()

	var texts []string
	skipped := 0
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), maxTweetLine)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			skipped++
			continue
		}
		text := gjson.GetBytes(line, "text")
		if text.Type != gjson.String {
			skipped++
			continue
		}
		texts = append(texts, text.String())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read tweets for %s: %w", ticker, err)
	}

	if skipped > 0 {
		s.logger.Debug("skipped malformed tweet lines", "ticker", ticker, "date", date.Format(models.DateLayout), "lines", skipped)
	}

	if s.dedup {
		var dropped int
		texts, dropped = DedupTexts(texts)
		if dropped > 0 {
			s.logger.Debug("dropped duplicate tweets", "ticker", ticker, "date", date.Format(models.DateLayout), "count", dropped)
		}
	}
	return texts, nil
}
