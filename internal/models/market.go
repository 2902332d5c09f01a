package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the calendar-date format used by the price files, tweet
// directories, cache keys and window text.
const DateLayout = "2006-01-02"

// Label is a directional verdict.
type Label string

const (
	LabelPositive Label = "Positive"
	LabelNegative Label = "Negative"
	LabelUnknown  Label = "Unknown"
)

// LabelFromChange derives the realized label from a same-day price change.
// Zero counts as Negative.
func LabelFromChange(change decimal.Decimal) Label {
	if change.IsPositive() {
		return LabelPositive
	}
	return LabelNegative
}

// PriceRecord is one row of a ticker's price series.
type PriceRecord struct {
	Date   time.Time
	Change decimal.Decimal
}

// Label returns the realized label of the row.
func (p PriceRecord) Label() Label {
	return LabelFromChange(p.Change)
}
