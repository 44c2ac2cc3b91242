package extract

import (
	"errors"
	"strings"
	"testing"
)

func TestExtract_Singleton(t *testing.T) {
	tests := []struct {
		name string
		text string
		d    Descriptor
		want string
	}{
		{
			name: "fixed length priority",
			text: "Priority: 1\n",
			d:    Descriptor{Marker: "Priority: ", End: FixedLength(1), Target: "Priority"},
			want: "1",
		},
		{
			name: "fixed length single multi-byte character",
			text: "Priority: é\n",
			d:    Descriptor{Marker: "Priority: ", End: FixedLength(1), Target: "Priority"},
			want: "é",
		},
		{
			name: "fixed length counts characters",
			text: "Priority: é\nTitle: Café crème\n",
			d:    Descriptor{Marker: "Title: ", End: FixedLength(4), Target: "Title"},
			want: "Café",
		},
		{
			// The first " Impacted" after the marker ends the value, so "App" is kept.
			name: "first occurrence of terminator after the marker",
			text: "Application Impacted: A App Impacted: B Other: X",
			d:    Descriptor{Marker: "Application Impacted: ", End: Terminator(" Impacted"), Target: "Apps"},
			want: "A App",
		},
		{
			name: "only the first occurrence is used",
			text: "Application Impacted: A App Application Impacted: B Other: X",
			d:    Descriptor{Marker: "Application Impacted: ", End: Terminator(" "), Target: "Apps"},
			want: "A",
		},
		{
			name: "marker absent",
			text: "Subject: hello",
			d:    Descriptor{Marker: "Priority: ", End: FixedLength(1), Target: "Priority"},
			want: "",
		},
		{
			name: "unterminated value runs to end and is trimmed",
			text: "Summary:   disk full on db01  ",
			d:    Descriptor{Marker: "Summary:", End: Terminator("\n"), Target: "Summary"},
			want: "disk full on db01",
		},
		{
			name: "terminator can be the next label",
			text: "Owner: Ops Team Business Criticality: High",
			d:    Descriptor{Marker: "Owner:", End: Terminator("Business Criticality"), Target: "Owner"},
			want: "Ops Team",
		},
		{
			name: "delimiter ignored for singleton",
			text: "A: 1\nA: 2\n",
			d:    Descriptor{Marker: "A: ", End: Terminator("\n"), Delimiter: ",", Target: "A"},
			want: "1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.text, tt.d)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_Collection(t *testing.T) {
	tests := []struct {
		name string
		text string
		d    Descriptor
		want string
	}{
		{
			name: "three tags joined in order",
			text: "Tag: red\nTag: green\nTag: blue\n",
			d:    Descriptor{Marker: "Tag: ", End: Terminator("\n"), Cardinality: Collection, Delimiter: ",", Target: "Tags"},
			want: "red,green,blue",
		},
		{
			name: "fixed length multi-byte codes",
			text: "Code: äö Code: ßx Code: €",
			d:    Descriptor{Marker: "Code: ", End: FixedLength(2), Cardinality: Collection, Delimiter: "|", Target: "Codes"},
			want: "äö|ßx|€",
		},
		{
			name: "zero length values terminate",
			text: "Tag: Tag: ",
			d:    Descriptor{Marker: "Tag: ", End: FixedLength(0), Cardinality: Collection, Delimiter: ",", Target: "Tags"},
			want: ",",
		},
		{
			name: "empty terminator terminates",
			text: "K:K:K:",
			d:    Descriptor{Marker: "K:", End: Terminator(""), Cardinality: Collection, Delimiter: "|", Target: "K"},
			want: "||",
		},
		{
			name: "fixed length values",
			text: "ID: 12 ID: 34 ID: 5",
			d:    Descriptor{Marker: "ID: ", End: FixedLength(2), Cardinality: Collection, Delimiter: "|", Target: "IDs"},
			want: "12|34|5",
		},
		{
			name: "last value unterminated",
			text: "Tag: a\nTag: b",
			d:    Descriptor{Marker: "Tag: ", End: Terminator("\n"), Cardinality: Collection, Delimiter: ",", Target: "Tags"},
			want: "a,b",
		},
		{
			name: "no occurrences joins to empty",
			text: "nothing",
			d:    Descriptor{Marker: "Tag: ", End: Terminator("\n"), Cardinality: Collection, Delimiter: ",", Target: "Tags"},
			want: "",
		},
		{
			name: "space terminated application list",
			text: "Application Impacted: CRM Application Impacted: ERP \n",
			d:    Descriptor{Marker: "Application Impacted: ", End: Terminator(" "), Cardinality: Collection, Delimiter: ",", Target: "Impacted Application List"},
			want: "CRM,ERP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.text, tt.d)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtract_InvalidDescriptor(t *testing.T) {
	tests := []struct {
		name string
		d    Descriptor
	}{
		{"missing marker", Descriptor{End: Terminator("\n")}},
		{"negative length", Descriptor{Marker: "A:", End: FixedLength(-1)}},
		{"missing end", Descriptor{Marker: "A:"}},
		{"collection without delimiter", Descriptor{Marker: "A:", End: Terminator("\n"), Cardinality: Collection}},
		{"unknown cardinality", Descriptor{Marker: "A:", End: Terminator("\n"), Cardinality: Cardinality(7)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract("A: 1\n", tt.d)
			if !errors.Is(err, ErrInvalidDescriptor) {
				t.Fatalf("expected ErrInvalidDescriptor, got %v", err)
			}
		})
	}
}

func TestValues_CountMatchesOccurrences(t *testing.T) {
	text := "Tag: a\nfoo\nTag: b\nbar Tag: c\n"
	d := Descriptor{Marker: "Tag: ", End: Terminator("\n"), Cardinality: Collection, Delimiter: ","}
	vals, err := Values(text, d)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vals) != strings.Count(text, "Tag: ") {
		t.Fatalf("got %d values, want %d", len(vals), strings.Count(text, "Tag: "))
	}
	want := []string{"a", "b", "c"}
	for i := range want {
		if vals[i] != want[i] {
			t.Fatalf("vals[%d] = %q, want %q", i, vals[i], want[i])
		}
	}

	d.Cardinality = Singleton
	vals, _ = Values(text, d)
	if len(vals) != 1 || vals[0] != "a" {
		t.Fatalf("singleton values = %v", vals)
	}
	vals, _ = Values("none", d)
	if vals != nil {
		t.Fatalf("expected nil, got %v", vals)
	}
}

func TestExtractAll(t *testing.T) {
	text := "Priority: 2\nApplication Impacted: CRM Application Impacted: ERP \nSummary: outage\n"
	ds := []Descriptor{
		{Marker: "Priority: ", End: FixedLength(1), Target: "Priority"},
		{Marker: "Application Impacted: ", End: Terminator(" "), Cardinality: Collection, Delimiter: ",", Target: "Apps"},
		{Marker: "Missing: ", End: Terminator("\n"), Target: "Missing"},
		{Marker: "Summary: ", End: Terminator("\n"), Target: "Summary"},
	}
	got, err := ExtractAll(text, ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := map[string]string{"Priority": "2", "Apps": "CRM,ERP", "Missing": "", "Summary": "outage"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for k, v := range want {
		if got[k] != v {
			t.Fatalf("%s = %q, want %q", k, got[k], v)
		}
	}
}

func TestExtractAll_DuplicateTargetLastWins(t *testing.T) {
	text := "A: 1\nB: 2\n"
	ds := []Descriptor{
		{Marker: "A: ", End: Terminator("\n"), Target: "X"},
		{Marker: "B: ", End: Terminator("\n"), Target: "X"},
	}
	got, err := ExtractAll(text, ds)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["X"] != "2" || len(got) != 1 {
		t.Fatalf("got %v", got)
	}
}

func TestExtractAll_FailsFast(t *testing.T) {
	ds := []Descriptor{
		{Marker: "A: ", End: Terminator("\n"), Target: "A"},
		{Marker: "", End: Terminator("\n"), Target: "B"},
	}
	got, err := ExtractAll("A: 1\n", ds)
	if !errors.Is(err, ErrInvalidDescriptor) {
		t.Fatalf("expected ErrInvalidDescriptor, got %v", err)
	}
	if !strings.Contains(err.Error(), "descriptor[1]") {
		t.Fatalf("error should name the index: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil map on error, got %v", got)
	}

	_, err = ExtractAll("A: 1\n", []Descriptor{{Marker: "A: ", End: Terminator("\n")}})
	if !errors.Is(err, ErrInvalidDescriptor) {
		t.Fatalf("missing target should be invalid, got %v", err)
	}
}
