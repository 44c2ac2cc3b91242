// Package extract pulls field values out of semi-structured text using
// literal markers and either a terminator string or a fixed length.
package extract

import (
	"fmt"
	"strings"
)

// Extract returns the value described by d from text.
//
// A singleton uses only the first occurrence of the marker; a collection joins
// every occurrence, left to right, with d.Delimiter. A marker that never occurs
// yields the empty string and no error. The only error is ErrInvalidDescriptor.
func Extract(text string, d Descriptor) (string, error) {
	if err := d.Validate(); err != nil {
		return "", err
	}
	if d.Cardinality == Singleton {
		m, ok := Locate(text, 0, d.Marker, d.End)
		if !ok {
			return "", nil
		}
		return m.Value, nil
	}
	return strings.Join(collect(text, d), d.Delimiter), nil
}

// Values returns every occurrence of d in text without joining them.
// Singletons return at most one value.
func Values(text string, d Descriptor) ([]string, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Cardinality == Singleton {
		m, ok := Locate(text, 0, d.Marker, d.End)
		if !ok {
			return nil, nil
		}
		return []string{m.Value}, nil
	}
	return collect(text, d), nil
}

// collect walks text with a cursor that moves past at least the matched
// marker on every step, so it stops within len(text)+1 iterations even for
// zero-length values.
func collect(text string, d Descriptor) []string {
	var values []string
	cursor := 0
	for step := 0; step <= len(text); step++ {
		m, ok := Locate(text, cursor, d.Marker, d.End)
		if !ok {
			break
		}
		values = append(values, m.Value)
		next := m.Next
		if next < m.MarkerEnd {
			next = m.MarkerEnd
		}
		cursor = next
	}
	return values
}

// ExtractAll validates every descriptor and then evaluates them in order into
// a fresh map keyed by Target. Duplicate targets keep the last value.
func ExtractAll(text string, ds []Descriptor) (map[string]string, error) {
	if err := ValidateAll(ds); err != nil {
		return nil, err
	}
	out := make(map[string]string, len(ds))
	for _, d := range ds {
		v, _ := Extract(text, d)
		out[d.Target] = v
	}
	return out, nil
}

// ValidateAll validates a descriptor set. Set members must also name a target.
func ValidateAll(ds []Descriptor) error {
	for i, d := range ds {
		if err := d.Validate(); err != nil {
			return fmt.Errorf("descriptor[%d]: %w", i, err)
		}
		if strings.TrimSpace(d.Target) == "" {
			return fmt.Errorf("descriptor[%d]: %w: marker %q: target is required", i, ErrInvalidDescriptor, d.Marker)
		}
	}
	return nil
}
