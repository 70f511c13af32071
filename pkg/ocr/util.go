package ocr

import "strings"

// snippet shortens s for log lines.
func snippet(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "…"
}

// normalizeOCRText collapses whitespace runs, including newlines and tabs.
func normalizeOCRText(t string) string {
	return strings.Join(strings.Fields(t), " ")
}
