package layout

import (
	"strings"

	"golang.org/x/text/encoding/charmap"
)

// Sanitize drops every rune the standard PDF fonts cannot show. The core
// fonts are Windows-1252 encoded, so anything outside that code page is
// removed, tabs become spaces, CRLF becomes LF and other control characters
// are discarded.
func Sanitize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\n':
			b.WriteRune(r)
		case r == '\t':
			b.WriteByte(' ')
		case r < 0x20 || r == 0x7f:
		default:
			if _, ok := charmap.Windows1252.EncodeRune(r); ok {
				b.WriteRune(r)
			}
		}
	}
	return b.String()
}
