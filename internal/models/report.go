package models

import "time"

// ConfusionMatrix is laid out with Labels as both row (true) and column
// (predicted) order.
type ConfusionMatrix struct {
	Labels []Label   `json:"labels"`
	Matrix [2][2]int `json:"matrix"`
}

// MetricsReport is the persisted outcome of one evaluation run.
type MetricsReport struct {
	ModelName       string          `json:"model_name"`
	DatasetName     string          `json:"dataset_name"`
	Timestamp       string          `json:"timestamp"`
	TotalSamples    int             `json:"total_samples"`
	ValidSamples    int             `json:"valid_samples"`
	InvalidSamples  int             `json:"invalid_samples"`
	Accuracy        float64         `json:"accuracy"`
	MCC             float64         `json:"mcc"`
	Precision       float64         `json:"precision"`
	Recall          float64         `json:"recall"`
	F1Score         float64         `json:"f1_score"`
	ConfusionMatrix ConfusionMatrix `json:"confusion_matrix"`
}

// EvaluationRun tracks a pipeline execution in the run database.
type EvaluationRun struct {
	ID           string     `json:"id"`
	ModelName    string     `json:"model_name"`
	DatasetName  string     `json:"dataset_name"`
	Split        Split      `json:"split"`
	Status       string     `json:"status"` // running, completed, failed
	ArtifactPath *string    `json:"artifact_path,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	StartedAt    time.Time  `json:"started_at"`
	CompletedAt  *time.Time `json:"completed_at,omitempty"`
}

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
