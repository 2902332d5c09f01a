package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/STRATINT/stockcast/internal/models"
	"github.com/google/uuid"
)

// RunRepository records evaluation runs and their reports.
type RunRepository struct {
	db *sql.DB
}

func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// CreateRun inserts a running record and returns its id.
func (r *RunRepository) CreateRun(ctx context.Context, modelName, datasetName string, split models.Split) (string, error) {
	runID := uuid.New().String()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO evaluation_runs (id, model_name, dataset_name, split, status)
		 VALUES ($1, $2, $3, $4, $5)`,
		runID, modelName, datasetName, string(split), models.RunStatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create run: %w", err)
	}
	return runID, nil
}

// CompleteRun stores the report and artifact path and marks the run completed.
func (r *RunRepository) CompleteRun(ctx context.Context, runID string, report models.MetricsReport, artifactPath string) error {
	matrix, err := json.Marshal(report.ConfusionMatrix)
	if err != nil {
		return fmt.Errorf("failed to marshal confusion matrix: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE evaluation_runs
		 SET status = $1, total_samples = $2, valid_samples = $3, invalid_samples = $4,
		     accuracy = $5, mcc = $6, precision_score = $7, recall = $8, f1_score = $9,
		     confusion_matrix = $10, artifact_path = $11, completed_at = CURRENT_TIMESTAMP
		 WHERE id = $12`,
		models.RunStatusCompleted, report.TotalSamples, report.ValidSamples, report.InvalidSamples,
		report.Accuracy, report.MCC, report.Precision, report.Recall, report.F1Score,
		matrix, artifactPath, runID,
	)
	return err
}

// FailRun marks the run failed with errMsg.
func (r *RunRepository) FailRun(ctx context.Context, runID string, errMsg string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE evaluation_runs SET status = $1, error_message = $2, completed_at = CURRENT_TIMESTAMP WHERE id = $3`,
		models.RunStatusFailed, errMsg, runID,
	)
	return err
}

// GetRun loads a run by id.
func (r *RunRepository) GetRun(ctx context.Context, runID string) (*models.EvaluationRun, error) {
	var run models.EvaluationRun
	var split string
	err := r.db.QueryRowContext(ctx,
		`SELECT id, model_name, dataset_name, split, status, artifact_path, error_message, started_at, completed_at
		 FROM evaluation_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.ModelName, &run.DatasetName, &split, &run.Status,
		&run.ArtifactPath, &run.ErrorMessage, &run.StartedAt, &run.CompletedAt)
	if err != nil {
		return nil, err
	}
	run.Split = models.Split(split)
	return &run, nil
}
