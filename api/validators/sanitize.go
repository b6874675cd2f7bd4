package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims input, folds runs of whitespace into one space, drops
// control characters and cuts the result to maxLen runes.
func SanitizeString(input string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(input))
	n := 0
	space := false
	for _, r := range strings.TrimSpace(input) {
		if maxLen > 0 && n >= maxLen {
			break
		}
		switch {
		case unicode.IsSpace(r):
			space = true
			continue
		case unicode.IsControl(r):
			continue
		}
		if space {
			if maxLen > 0 && n+1 >= maxLen {
				break
			}
			b.WriteByte(' ')
			n++
			space = false
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}
