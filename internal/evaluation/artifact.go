package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/STRATINT/stockcast/internal/models"
)

// TimestampLayout formats report timestamps and artifact names.
const TimestampLayout = "20060102_150405"

// Save writes report to <dir>/<model>_eval_<timestamp>.json and returns the
// path. An empty Timestamp is set to the current time. Model names containing
// "/" produce nested directories.
func Save(dir string, report models.MetricsReport) (string, error) {
	if report.Timestamp == "" {
		report.Timestamp = time.Now().Format(TimestampLayout)
	}
	if len(report.ConfusionMatrix.Labels) == 0 {
		report.ConfusionMatrix.Labels = MatrixLabels
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_eval_%s.json", report.ModelName, report.Timestamp))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "    ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}
