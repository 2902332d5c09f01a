package prediction

import (
	"regexp"
	"strings"

	"github.com/STRATINT/stockcast/internal/models"
)

var stockReturnPattern = regexp.MustCompile(`stock return\s*:\s*[+-]?\d+(\.\d+)?\s*%?\s*\(\s*(up|down)\s*\)`)

// ExtractLabel reads the direction of the first "Stock Return: x% (up|down)"
// line in a forecast. Anything else is Unknown.
func ExtractLabel(raw string) models.Label {
	text := strings.ReplaceAll(strings.ToLower(raw), "*", "")
	m := stockReturnPattern.FindStringSubmatch(text)
	if m == nil {
		return models.LabelUnknown
	}
	if m[2] == "up" {
		return models.LabelPositive
	}
	return models.LabelNegative
}
