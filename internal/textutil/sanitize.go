package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// asciiFold strips diacritic marks so accented characters survive the ASCII
// filter as their base letters.
var asciiFold = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

const unsafeFileChars = `<>:"/\|?*`

// SanitizeFileName rewrites a media title into a name safe for any filesystem
// the download directory might live on: path-unsafe and control characters
// become underscores, accented letters fold to their ASCII base, remaining
// non-ASCII runes are dropped, and leading/trailing spaces and dots are
// trimmed. An empty result falls back to "video".
func SanitizeFileName(name string) string {
	folded, _, err := transform.String(asciiFold, name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r <= 0x1f || (r >= 0x7f && r <= 0x9f):
			b.WriteByte('_')
		case strings.ContainsRune(unsafeFileChars, r):
			b.WriteByte('_')
		case r > unicode.MaxASCII:
			// dropped
		default:
			b.WriteRune(r)
		}
	}

	out := strings.Trim(b.String(), " .")
	if out == "" {
		return "video"
	}
	return out
}
