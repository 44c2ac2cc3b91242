package extract

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDescriptor is returned when a descriptor is structurally malformed.
var ErrInvalidDescriptor = errors.New("invalid descriptor")

// Cardinality controls whether one or all occurrences of a marker are used.
type Cardinality int

const (
	Singleton Cardinality = iota
	Collection
)

func (c Cardinality) String() string {
	switch c {
	case Singleton:
		return "singleton"
	case Collection:
		return "collection"
	default:
		return fmt.Sprintf("cardinality(%d)", int(c))
	}
}

type endKind int

const (
	endUnset endKind = iota
	endTerminator
	endFixed
)

// End describes where a field value stops. The zero value is unset and fails validation.
type End struct {
	kind       endKind
	terminator string
	length     int
}

// Terminator ends a value just before the next occurrence of s.
func Terminator(s string) End { return End{kind: endTerminator, terminator: s} }

// FixedLength makes a value exactly n characters (runes) long.
func FixedLength(n int) End { return End{kind: endFixed, length: n} }

// Terminator returns the terminator string and whether End is terminator based.
func (e End) Terminator() (string, bool) { return e.terminator, e.kind == endTerminator }

// Length returns the fixed length and whether End is length based.
func (e End) Length() (int, bool) { return e.length, e.kind == endFixed }

// IsZero reports whether no end specification was given.
func (e End) IsZero() bool { return e.kind == endUnset }

func (e End) String() string {
	switch e.kind {
	case endTerminator:
		return fmt.Sprintf("terminator(%q)", e.terminator)
	case endFixed:
		return fmt.Sprintf("length(%d)", e.length)
	default:
		return "unset"
	}
}

// Descriptor tells the extractor how to find one field in a text body.
type Descriptor struct {
	Marker      string
	End         End
	Cardinality Cardinality
	Delimiter   string
	Target      string
}

// Validate checks the descriptor and wraps ErrInvalidDescriptor with the reason.
func (d Descriptor) Validate() error {
	if d.Marker == "" {
		return fmt.Errorf("%w: marker is required", ErrInvalidDescriptor)
	}
	switch d.End.kind {
	case endTerminator:
	case endFixed:
		if d.End.length < 0 {
			return fmt.Errorf("%w: marker %q: negative length %d", ErrInvalidDescriptor, d.Marker, d.End.length)
		}
	default:
		return fmt.Errorf("%w: marker %q: terminator or length is required", ErrInvalidDescriptor, d.Marker)
	}
	switch d.Cardinality {
	case Singleton:
	case Collection:
		if d.Delimiter == "" {
			return fmt.Errorf("%w: marker %q: collection requires a delimiter", ErrInvalidDescriptor, d.Marker)
		}
	default:
		return fmt.Errorf("%w: marker %q: unknown cardinality %d", ErrInvalidDescriptor, d.Marker, int(d.Cardinality))
	}
	return nil
}

// rawDescriptor accepts both the legacy propInfo field names and the native ones.
// Terminator/PropValueTerminator stay untyped so that a number selects fixed length
// and a string selects a terminator.
type rawDescriptor struct {
	PropName            string      `json:"propName" yaml:"propName"`
	PropValueTerminator interface{} `json:"propValueTerminator" yaml:"propValueTerminator"`
	IsSingleton         *bool       `json:"isSingleton" yaml:"isSingleton"`
	Delim               string      `json:"delim" yaml:"delim"`
	TargetPropName      string      `json:"targetPropName" yaml:"targetPropName"`

	Marker     string      `json:"marker" yaml:"marker"`
	Terminator interface{} `json:"terminator" yaml:"terminator"`
	Length     *int        `json:"length" yaml:"length"`
	Collection *bool       `json:"collection" yaml:"collection"`
	Delimiter  string      `json:"delimiter" yaml:"delimiter"`
	Target     string      `json:"target" yaml:"target"`
}

func (r rawDescriptor) toDescriptor() (Descriptor, error) {
	d := Descriptor{
		Marker:    firstNonEmpty(r.Marker, r.PropName),
		Delimiter: firstNonEmpty(r.Delimiter, r.Delim),
		Target:    firstNonEmpty(r.Target, r.TargetPropName),
	}
	switch {
	case r.Collection != nil:
		if *r.Collection {
			d.Cardinality = Collection
		}
	case r.IsSingleton != nil:
		if !*r.IsSingleton {
			d.Cardinality = Collection
		}
	}

	end := r.Terminator
	if end == nil {
		end = r.PropValueTerminator
	}
	if r.Length != nil {
		if end != nil {
			return d, fmt.Errorf("%w: marker %q: both terminator and length given", ErrInvalidDescriptor, d.Marker)
		}
		d.End = FixedLength(*r.Length)
		return d, nil
	}
	e, err := endFromAny(end)
	if err != nil {
		return d, fmt.Errorf("%w: marker %q: %v", ErrInvalidDescriptor, d.Marker, err)
	}
	d.End = e
	return d, nil
}

func endFromAny(v interface{}) (End, error) {
	switch t := v.(type) {
	case nil:
		return End{}, nil
	case string:
		return Terminator(t), nil
	case int:
		return FixedLength(t), nil
	case int64:
		return FixedLength(int(t)), nil
	case uint64:
		if t > math.MaxInt32 {
			return End{}, fmt.Errorf("length %d out of range", t)
		}
		return FixedLength(int(t)), nil
	case float64:
		if t != math.Trunc(t) || math.Abs(t) > math.MaxInt32 {
			return End{}, fmt.Errorf("length %v is not an integer", t)
		}
		return FixedLength(int(t)), nil
	case json.Number:
		n, err := t.Int64()
		if err != nil {
			return End{}, fmt.Errorf("length %s is not an integer", t)
		}
		return FixedLength(int(n)), nil
	default:
		return End{}, fmt.Errorf("unsupported end specification of type %T", v)
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// UnmarshalJSON decodes legacy ({"propName", "propValueTerminator", ...}) and
// native ({"marker", "terminator"|"length", ...}) descriptor objects.
func (d *Descriptor) UnmarshalJSON(b []byte) error {
	var r rawDescriptor
	if err := json.Unmarshal(b, &r); err != nil {
		return err
	}
	out, err := r.toDescriptor()
	if err != nil {
		return err
	}
	*d = out
	return nil
}

// UnmarshalYAML mirrors UnmarshalJSON for YAML config files.
func (d *Descriptor) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	var r rawDescriptor
	if err := value.Decode(&r); err != nil {
		return err
	}
	out, err := r.toDescriptor()
	if err != nil {
		return err
	}
	*d = out
	return nil
}

// FromMap builds a descriptor from a generic map such as one produced by viper.
func FromMap(m map[string]interface{}) (Descriptor, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return Descriptor{}, err
	}
	var d Descriptor
	if err := json.Unmarshal(b, &d); err != nil {
		return Descriptor{}, err
	}
	return d, nil
}

// MarshalJSON writes the native shape.
func (d Descriptor) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"marker": d.Marker,
		"target": d.Target,
	}
	if t, ok := d.End.Terminator(); ok {
		out["terminator"] = t
	}
	if n, ok := d.End.Length(); ok {
		out["length"] = n
	}
	if d.Cardinality == Collection {
		out["collection"] = true
		out["delimiter"] = d.Delimiter
	}
	return json.Marshal(out)
}

// ParseDescriptors decodes a JSON array of descriptors, e.g. a PROPINFO_ARRAY constant.
func ParseDescriptors(data []byte) ([]Descriptor, error) {
	var ds []Descriptor
	if len(strings.TrimSpace(string(data))) == 0 {
		return ds, nil
	}
	if err := json.Unmarshal(data, &ds); err != nil {
		return nil, fmt.Errorf("parse descriptors: %w", err)
	}
	return ds, nil
}
