package domain

import (
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`(?i)(https?://[^\s]+)`)

// ExtractURL returns the first http(s) URL in text with trailing closing
// punctuation removed, or "" when there is none.
func ExtractURL(text string) string {
	match := urlPattern.FindString(text)
	return strings.TrimRight(match, ").,]}")
}
