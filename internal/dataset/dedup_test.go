package dataset

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"lowercase", "Apple Beats Estimates", "apple beats estimates"},
		{"whitespace", "apple    beats\n\testimates", "apple beats estimates"},
		{"retweet prefix", "RT @traderjoe: $AAPL breaks out", "$aapl breaks out"},
		{"url", "read this https://t.co/abc123", "read this [URL]"},
		{"mention", "thanks @user1 for the tip", "thanks [MENTION] for the tip"},
		{"cashtag and hashtag kept", "$TSLA #earnings", "$tsla #earnings"},
		{"punctuation", "Wow, what a quarter!", "wow what a quarter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeText(tt.input); got != tt.expected {
				t.Errorf("NormalizeText(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestDedupTexts(t *testing.T) {
	texts := []string{
		"$AAPL iPhone sales record https://t.co/a",
		"RT @news: $AAPL iPhone sales record https://t.co/b",
		"$AAPL guidance raised",
		"$aapl  iphone sales record! https://t.co/c",
	}

	kept, dropped := DedupTexts(texts)
	want := []string{texts[0], texts[2]}
	if !reflect.DeepEqual(kept, want) {
		t.Errorf("DedupTexts() kept %v, want %v", kept, want)
	}
	if dropped != 2 {
		t.Errorf("dropped = %d, want 2", dropped)
	}
	if texts[1] != "RT @news: $AAPL iPhone sales record https://t.co/b" {
		t.Error("input slice must not be modified")
	}
}

func TestTweetStoreDedup(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "GOOG", "2015-03-02"), strings.Join([]string{
		`{"text": "$GOOG hits all-time high"}`,
		`{"text": "RT @markets: $GOOG hits all-time high"}`,
	}, "\n"))

	day := time.Date(2015, 3, 2, 0, 0, 0, 0, time.UTC)
	texts, err := NewTweetStore(dir, true, testLogger()).Texts("GOOG", day)
	if err != nil {
		t.Fatalf("Texts() error: %v", err)
	}
	if len(texts) != 1 {
		t.Errorf("expected reposts to be dropped, got %v", texts)
	}

	texts, err = NewTweetStore(dir, false, testLogger()).Texts("GOOG", day)
	if err != nil {
		t.Fatalf("Texts() error: %v", err)
	}
	if len(texts) != 2 {
		t.Errorf("expected raw tweets without dedup, got %v", texts)
	}
}
