package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims surrounding whitespace, strips control characters and
// truncates to maxLen runes. Free-text fields arrive from mobile clients and
// end up in broadcast payloads, so they are cleaned before they persist.
func SanitizeString(input string, maxLen int) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	if maxLen > 0 {
		runes := []rune(cleaned)
		if len(runes) > maxLen {
			cleaned = string(runes[:maxLen])
		}
	}
	return cleaned
}
