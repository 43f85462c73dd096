package validators

import "strings"

// SanitizeString trims whitespace and strips control characters that have no
// business in free-text fields.
func SanitizeString(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if r < 32 && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(cleaned)
}
