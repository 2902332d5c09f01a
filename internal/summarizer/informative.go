package summarizer

import (
	"regexp"
	"strings"
)

// uninformativePattern matches summaries that say the input had nothing to
// report. It is applied to the first line only, anchored at its start.
var uninformativePattern = regexp.MustCompile(
	`^(?:.*[nN]o.*information.*|.*[nN]o.*facts.*|.*[nN]o.*mention.*|.*[nN]o.*tweets.*|.*do not contain.*)`,
)

// IsInformative reports whether a summary carries content worth feeding into a
// forecast window.
func IsInformative(text string) bool {
	firstLine, _, _ := strings.Cut(text, "\n")
	return !uninformativePattern.MatchString(firstLine)
}
