package utils

import "strings"

// TruncateForLog flattens s to a single line and cuts it to limit runes.
// Descriptions are free text, so newlines and runs of spaces collapse to one
// space before the limit applies.
func TruncateForLog(s string, limit int) string {
	if limit <= 0 {
		return ""
	}

	flat := strings.Join(strings.Fields(s), " ")

	runes := []rune(flat)
	if len(runes) <= limit {
		return flat
	}
	return string(runes[:limit]) + "..."
}
