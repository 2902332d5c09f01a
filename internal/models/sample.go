package models

import "time"

// Split selects the chronological partition of each ticker's series.
type Split string

const (
	SplitTrain Split = "train"
	SplitTest  Split = "test"
)

// ParseSplit validates a split name.
func ParseSplit(raw string) (Split, bool) {
	switch Split(raw) {
	case SplitTrain:
		return SplitTrain, true
	case SplitTest:
		return SplitTest, true
	default:
		return "", false
	}
}

// WindowSample pairs the concatenated informative summaries of a trailing
// window with the realized label of the day that closes it.
type WindowSample struct {
	Ticker        string    `json:"ticker"`
	Label         Label     `json:"label"`
	WindowEndDate time.Time `json:"window_end_date"`
	Summary       string    `json:"summary"`
}

// PredictionRecord is the outcome of forecasting one sample.
type PredictionRecord struct {
	Ticker             string       `json:"ticker"`
	Sample             WindowSample `json:"sample"`
	CompanyDescription string       `json:"company_description"`
	RawOutput          string       `json:"raw_output"`
	Predicted          Label        `json:"predicted"`
}

// Correct reports whether the extracted label matches the realized one.
func (p PredictionRecord) Correct() bool {
	return p.Predicted == p.Sample.Label
}
