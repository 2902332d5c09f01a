package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/STRATINT/stockcast/internal/config"
	"gopkg.in/natefinch/lumberjack.v2"
)

// New constructs a slog.Logger configured according to the provided settings.
// When cfg.File is set the stream is also written to a size-rotated file.
func New(cfg config.LoggingConfig) (*slog.Logger, error) {
	var out io.Writer = os.Stdout
	if cfg.File != "" {
		out = io.MultiWriter(os.Stdout, newFileWriter(cfg.File, time.Now()))
	}

	handler, err := buildHandler(cfg, out)
	if err != nil {
		return nil, err
	}

	return slog.New(handler), nil
}

func buildHandler(cfg config.LoggingConfig, out io.Writer) (slog.Handler, error) {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	switch cfg.Format {
	case "json":
		return slog.NewJSONHandler(out, opts), nil
	case "text":
		return slog.NewTextHandler(out, opts), nil
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}
}

func newFileWriter(path string, now time.Time) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   resolveLogPath(path, now),
		MaxSize:    100, // megabytes
		MaxBackups: 5,
		Compress:   true,
	}
}

// resolveLogPath maps a directory, existing or written with a trailing
// separator, to a per-run experiment log inside it.
func resolveLogPath(path string, now time.Time) string {
	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) || isDir(path) {
		return filepath.Join(path, fmt.Sprintf("exp_%s.log", now.Format("20060102_150405")))
	}
	return path
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
