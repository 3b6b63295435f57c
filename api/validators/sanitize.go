package validators

import (
	"strings"
	"unicode"
)

// SanitizeString normalises free text from the catalog search box: control characters are
// dropped, whitespace runs collapse to one space, and the result is cut to maxLen runes.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	space := false
	runes := 0
	for _, r := range strings.TrimSpace(input) {
		if maxLen > 0 && runes >= maxLen {
			break
		}
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r) || r == unicode.ReplacementChar:
			continue
		}
		if space && b.Len() > 0 {
			if maxLen > 0 && runes+1 >= maxLen {
				break
			}
			b.WriteByte(' ')
			runes++
		}
		space = false
		b.WriteRune(r)
		runes++
	}
	return b.String()
}
