package extracthtml

import "strings"

// NormalizeWhitespace collapses every run of whitespace (including non-breaking
// spaces) into a single space and trims both ends. It is idempotent.
func NormalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// StripPrefix removes every exact occurrence of prefix from s and trims the
// remainder. An empty prefix only trims.
//
//	StripPrefix("Top 10 Lowest Temperature as of January 1, 2024",
//		"Top 10 Lowest Temperature as of") == "January 1, 2024"
func StripPrefix(s, prefix string) string {
	if prefix != "" {
		s = strings.ReplaceAll(s, prefix, "")
	}
	return strings.TrimSpace(s)
}
