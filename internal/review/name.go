package review

import (
	"strconv"
	"strings"
)

// WithScore replaces the " (score)" suffix of a card name, or appends one.
func WithScore(name string, score float64) string {
	original := name
	if strings.HasSuffix(name, ")") {
		if i := strings.LastIndex(name, " ("); i >= 0 {
			original = name[:i]
		}
	}
	return original + " (" + formatScore(score) + ")"
}

func formatScore(score float64) string {
	s := strconv.FormatFloat(score, 'f', -1, 64)
	if score > 0 {
		return "+" + s
	}
	return s
}
