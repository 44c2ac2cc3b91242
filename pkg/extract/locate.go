package extract

import (
	"strings"
	"unicode/utf8"
)

// Match is a single located value.
type Match struct {
	// Value is the extracted text. Terminator values are whitespace trimmed.
	Value string
	// Next is the offset where a subsequent search should resume.
	// For terminator values it is the start of the terminator (or len(text) when
	// the terminator is absent); for fixed lengths it is the offset after the
	// value's last character.
	Next int
	// MarkerEnd is the offset just past the matched marker.
	MarkerEnd int
}

// Locate finds the first occurrence of marker at or after from and computes the
// value that follows it according to end. The boolean is false when the marker
// does not occur (or marker is empty, or from is past the end of text).
//
// A terminator that never occurs after the marker makes the value run to the
// end of text.
func Locate(text string, from int, marker string, end End) (Match, bool) {
	if marker == "" || from > len(text) {
		return Match{}, false
	}
	if from < 0 {
		from = 0
	}
	i := strings.Index(text[from:], marker)
	if i < 0 {
		return Match{}, false
	}
	start := from + i + len(marker)
	m := Match{Next: start, MarkerEnd: start}
	if start >= len(text) {
		return m, true
	}

	rest := text[start:]
	if n, ok := end.Length(); ok {
		if n < 0 {
			n = 0
		}
		// n counts characters; a short text leaves Next n-taken bytes past its end.
		pos, taken := 0, 0
		for taken < n && pos < len(rest) {
			_, w := utf8.DecodeRuneInString(rest[pos:])
			pos += w
			taken++
		}
		m.Value = rest[:pos]
		m.Next = start + pos + (n - taken)
		return m, true
	}

	term, _ := end.Terminator()
	stop := len(text)
	if j := strings.Index(rest, term); j >= 0 {
		stop = start + j
	}
	m.Value = strings.TrimSpace(text[start:stop])
	m.Next = stop
	return m, true
}
