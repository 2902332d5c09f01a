package models

import (
	"fmt"
	"time"
)

// SummaryKey identifies one cached summary. Model and Method scope the entry
// so that different LLMs or prompt families never share results.
type SummaryKey struct {
	Model  string
	Method string
	Ticker string
	Date   string // DateLayout
}

// String renders the key for logs and singleflight grouping.
func (k SummaryKey) String() string {
	return fmt.Sprintf("%s/%s/%s/%s", k.Model, k.Method, k.Ticker, k.Date)
}

// SummaryEntry is a generated (or deliberately empty) summary for one ticker and
// day. Entries are immutable once written.
type SummaryEntry struct {
	Ticker      string   `json:"ticker"`
	Date        string   `json:"date"`
	TweetData   []string `json:"tweet_data"`
	Prompt      string   `json:"prompt"`
	Summary     string   `json:"summary"`
	Model       string   `json:"model"`
	Method      string   `json:"method"`
	Informative bool     `json:"informative"`
}

// Key returns the cache key of the entry.
func (e SummaryEntry) Key() SummaryKey {
	return SummaryKey{Model: e.Model, Method: e.Method, Ticker: e.Ticker, Date: e.Date}
}

// AbsentEntry builds the marker stored for a day without informative content.
func AbsentEntry(key SummaryKey) SummaryEntry {
	return SummaryEntry{
		Ticker: key.Ticker,
		Date:   key.Date,
		Model:  key.Model,
		Method: key.Method,
	}
}

// SummaryAttempt is the audit record of one summarization call, kept even when
// the output was filtered out as uninformative.
type SummaryAttempt struct {
	ID          int64     `json:"id"`
	Ticker      string    `json:"ticker"`
	Date        string    `json:"date"`
	TweetData   []string  `json:"tweet_data"`
	Prompt      string    `json:"prompt"`
	Summary     string    `json:"summary"`
	RawOutput   string    `json:"raw_output"`
	Model       string    `json:"model"`
	Method      string    `json:"method"`
	Informative bool      `json:"informative"`
	CreatedAt   time.Time `json:"created_at"`
}
