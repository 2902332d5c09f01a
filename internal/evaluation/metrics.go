// Package evaluation scores direction predictions and persists the report.
package evaluation

import (
	"fmt"
	"math"
	"sort"

	"github.com/STRATINT/stockcast/internal/models"
)

var labelValue = map[models.Label]int{
	models.LabelNegative: 0,
	models.LabelPositive: 1,
}

// MatrixLabels is the row and column order of the confusion matrix.
var MatrixLabels = []models.Label{models.LabelNegative, models.LabelPositive}

// Compute scores preds against labels position by position. A true label
// outside {Positive, Negative} makes the pair invalid and it is excluded. A
// prediction outside the set is scored as the opposite of the true label.
func Compute(preds, labels []models.Label) (models.MetricsReport, error) {
	if len(preds) != len(labels) {
		return models.MetricsReport{}, fmt.Errorf("got %d predictions for %d labels", len(preds), len(labels))
	}

	var matrix [2][2]int
	valid := 0
	for i, label := range labels {
		truth, ok := labelValue[label]
		if !ok {
			continue
		}
		pred, ok := labelValue[preds[i]]
		if !ok {
			pred = 1 - truth
		}
		matrix[truth][pred]++
		valid++
	}

	report := models.MetricsReport{
		TotalSamples:   len(labels),
		ValidSamples:   valid,
		InvalidSamples: len(labels) - valid,
		ConfusionMatrix: models.ConfusionMatrix{
			Labels: MatrixLabels,
			Matrix: matrix,
		},
	}
	if valid == 0 {
		return report, nil
	}

	tn, fp := float64(matrix[0][0]), float64(matrix[0][1])
	fn, tp := float64(matrix[1][0]), float64(matrix[1][1])

	report.Accuracy = (tp + tn) / float64(valid)
	report.Precision = safeDiv(tp, tp+fp)
	report.Recall = safeDiv(tp, tp+fn)
	report.F1Score = safeDiv(2*report.Precision*report.Recall, report.Precision+report.Recall)
	report.MCC = safeDiv(tp*tn-fp*fn, math.Sqrt((tp+fp)*(tp+fn)*(tn+fp)*(tn+fn)))
	return report, nil
}

// FromRecords scores prediction records against their samples' labels.
func FromRecords(records []models.PredictionRecord) (models.MetricsReport, error) {
	preds := make([]models.Label, len(records))
	labels := make([]models.Label, len(records))
	for i, r := range records {
		preds[i] = r.Predicted
		labels[i] = r.Sample.Label
	}
	return Compute(preds, labels)
}

// TickerAccuracy is the per-ticker hit rate of a run.
type TickerAccuracy struct {
	Ticker   string
	Correct  int
	Total    int
	Accuracy float64
}

// ByTicker groups records by ticker, sorted by ticker.
func ByTicker(records []models.PredictionRecord) []TickerAccuracy {
	index := map[string]*TickerAccuracy{}
	for _, r := range records {
		acc, ok := index[r.Ticker]
		if !ok {
			acc = &TickerAccuracy{Ticker: r.Ticker}
			index[r.Ticker] = acc
		}
		acc.Total++
		if r.Correct() {
			acc.Correct++
		}
	}

	out := make([]TickerAccuracy, 0, len(index))
	for _, acc := range index {
		acc.Accuracy = safeDiv(float64(acc.Correct), float64(acc.Total))
		out = append(out, *acc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out
}

func safeDiv(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}
