package utils

import (
	"strings"
	"unicode/utf8"
)

// MaskEmail masks an email address for safe logging.
// Example: "ops@example.com" -> "o***@example.com"
func MaskEmail(email string) string {
	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "***"
	}
	if len(local) <= 1 {
		return local + "***@" + domain
	}
	return local[:1] + "***@" + domain
}

// LastN returns "…" followed by the last n runes of s. Values that are not
// longer than 2n are fully masked so a short secret never leaks in full.
func LastN(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= 2*n {
		return "…"
	}
	r := []rune(s)
	return "…" + string(r[len(r)-n:])
}

// Truncate shortens s to at most max runes, marking the cut with "...".
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	r := []rune(s)
	return string(r[:max]) + "..."
}
