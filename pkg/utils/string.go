package utils

import "strings"

// Truncate is a simple string truncate. It counts runes so multi-byte
// characters are never split.
func Truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen]) + "..."
}

// OneLine collapses all whitespace runs, newlines included, to single
// spaces for table and log output.
func OneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
