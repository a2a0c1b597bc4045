package utils

import "unicode/utf8"

// Truncate shortens s to at most maxLen runes, appending "..." when it cut
// anything. Multi-byte text is never split mid-rune.
func Truncate(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}

// OneLine collapses line breaks so a value fits on a single table row.
func OneLine(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r == '\n' || r == '\r' || r == '\t' {
			r = ' '
		}
		out = append(out, r)
	}
	return string(out)
}
