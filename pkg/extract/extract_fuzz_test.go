package extract

import (
	"strings"
	"testing"
	"unicode/utf8"
)

// FuzzExtract checks that extraction never panics, always terminates, and
// that collection results never exceed the number of marker occurrences.
// Values taken from valid UTF-8 input never split a character.
func FuzzExtract(f *testing.F) {
	f.Add("Priority: 1\n", "Priority: ", "\n", 1)
	f.Add("Tag: a\nTag: b\nTag: c\n", "Tag: ", "\n", 0)
	f.Add("Tag: Tag: ", "Tag: ", "", 0)
	f.Add("aaaa", "a", "a", 2)
	f.Add("", "x", "y", 3)
	f.Add("Priority: é\nTitle: Café\n", "Priority: ", "\n", 1)
	f.Add("K:日本語", "K:", "語", 2)

	f.Fuzz(func(t *testing.T, text, marker, term string, n int) {
		if marker == "" {
			return
		}
		if n < 0 {
			n = -n
		}
		n %= 16
		for _, end := range []End{Terminator(term), FixedLength(n)} {
			d := Descriptor{Marker: marker, End: end, Cardinality: Collection, Delimiter: "\x00", Target: "t"}
			vals, err := Values(text, d)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(vals) > strings.Count(text, marker) {
				t.Fatalf("got %d values for %d marker occurrences", len(vals), strings.Count(text, marker))
			}

			d.Cardinality = Singleton
			got, err := Extract(text, d)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !strings.Contains(text, marker) && got != "" {
				t.Fatalf("marker absent but got %q", got)
			}
			if _, ok := end.Terminator(); ok && got != strings.TrimSpace(got) {
				t.Fatalf("terminator value not trimmed: %q", got)
			}
			valid := utf8.ValidString(text) && utf8.ValidString(marker) && utf8.ValidString(term)
			if valid {
				for _, v := range append([]string{got}, vals...) {
					if !utf8.ValidString(v) {
						t.Fatalf("value %q splits a character", v)
					}
				}
			}
			if l, ok := end.Length(); ok && valid && utf8.RuneCountInString(got) > l {
				t.Fatalf("value %q longer than %d characters", got, l)
			}
			if len(vals) > 0 && vals[0] != got {
				t.Fatalf("singleton %q differs from first collection value %q", got, vals[0])
			}
		}
	})
}
