package utils

import "unicode/utf8"

// Truncate is a simple string truncate
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}

	// Back off to a rune boundary so multi-byte text is never split.
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
