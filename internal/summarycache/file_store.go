package summarycache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/STRATINT/stockcast/internal/models"
)

// FileStore keeps one JSON document per key at
// <root>/<model>/<method>/<ticker>/<date>.json.
type FileStore struct {
	root string
}

// NewFileStore creates the root directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory %s: %w", root, err)
	}
	return &FileStore{root: root}, nil
}

// Path returns the artifact location for key.
func (s *FileStore) Path(key models.SummaryKey) string {
	return filepath.Join(s.root,
		pathSegment(key.Model),
		pathSegment(key.Method),
		pathSegment(key.Ticker),
		pathSegment(key.Date)+".json",
	)
}

func (s *FileStore) Load(_ context.Context, key models.SummaryKey) (models.SummaryEntry, bool, error) {
	data, err := os.ReadFile(s.Path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return models.SummaryEntry{}, false, nil
	}
	if err != nil {
		return models.SummaryEntry{}, false, fmt.Errorf("failed to read summary: %w", err)
	}

	var entry models.SummaryEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return models.SummaryEntry{}, false, fmt.Errorf("%w: %s: %v", ErrCorrupt, s.Path(key), err)
	}
	return entry, true, nil
}

// Save writes the entry through a temp file and rename so readers never see
// a partial document.
func (s *FileStore) Save(_ context.Context, entry models.SummaryEntry) error {
	path := s.Path(entry.Key())
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create summary directory: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal summary: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".summary-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close summary: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move summary into place: %w", err)
	}
	return nil
}

// pathSegment keeps model names such as "meta-llama/Llama-3" in one
// directory level.
func pathSegment(s string) string {
	return strings.NewReplacer("/", "_", "\\", "_").Replace(s)
}
