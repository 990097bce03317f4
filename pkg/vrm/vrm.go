package vrm

import (
	"strings"
	"unicode"
)

// Normalize returns the canonical form of a vehicle registration mark: every
// whitespace rune removed and the remainder upper-cased. Plates are often typed
// as "ab12 cde", so interior spaces are stripped as well as surrounding ones.
// An empty result means no registration was supplied.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}
