package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	retweetPattern    = regexp.MustCompile(`^rt @\w+:?\s*`)
	urlPattern        = regexp.MustCompile(`https?://\S+`)
	mentionPattern    = regexp.MustCompile(`@\w+`)
	punctPattern      = regexp.MustCompile(`[.,!?;:"'“”‘’]+`)
)

// NormalizeText reduces a tweet to the content that identifies a repost:
// lowercase, collapsed whitespace, no retweet prefix, links and mentions
// replaced by placeholders. Cashtags and hashtags are kept.
func NormalizeText(text string) string {
	normalized := strings.ToLower(text)
	normalized = whitespacePattern.ReplaceAllString(normalized, " ")
	normalized = strings.TrimSpace(normalized)
	normalized = retweetPattern.ReplaceAllString(normalized, "")
	normalized = urlPattern.ReplaceAllString(normalized, "[URL]")
	normalized = mentionPattern.ReplaceAllString(normalized, "[MENTION]")
	normalized = punctPattern.ReplaceAllString(normalized, "")
	return strings.TrimSpace(normalized)
}

// ContentHash fingerprints the normalized text.
func ContentHash(text string) string {
	hash := sha256.Sum256([]byte(NormalizeText(text)))
	return hex.EncodeToString(hash[:])
}

// DedupTexts keeps the first occurrence of each fingerprint, preserving
// order, and reports how many texts were dropped.
func DedupTexts(texts []string) ([]string, int) {
	seen := make(map[string]struct{}, len(texts))
	kept := texts[:0:0]
	for _, text := range texts {
		hash := ContentHash(text)
		if _, ok := seen[hash]; ok {
			continue
		}
		seen[hash] = struct{}{}
		kept = append(kept, text)
	}
	return kept, len(texts) - len(kept)
}
