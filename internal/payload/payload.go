// Package payload reads inbound event records.
package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/tidwall/gjson"
)

// ErrInvalidPayload is returned for bodies that are not a JSON object.
var ErrInvalidPayload = errors.New("invalid payload")

// Event is an inbound event with its properties flattened into one map.
type Event struct {
	ID         string
	Status     string
	Properties map[string]interface{}
	Raw        []byte
}

// Keys names the event properties that carry the email parts.
type Keys struct {
	Body     string
	HTMLBody string
	Subject  string
	From     string
}

// Parse reads id, status and eventProperties from a JSON event body.
// The id is taken from "eventId", then "id", then "event.id".
func Parse(raw []byte) (*Event, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: body is not valid JSON", ErrInvalidPayload)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsObject() {
		return nil, fmt.Errorf("%w: expected a JSON object", ErrInvalidPayload)
	}
	ev := &Event{Raw: raw, Properties: map[string]interface{}{}}
	for _, path := range []string{"eventId", "id", "event.id"} {
		if r := root.Get(path); r.Exists() && r.String() != "" {
			ev.ID = r.String()
			break
		}
	}
	ev.Status = root.Get("status").String()
	if props := root.Get("eventProperties"); props.Exists() {
		ev.Properties = Flatten(props.Value())
	}
	return ev, nil
}

// Flatten turns a list of single-key objects into one map. Maps are returned
// as a copy, so flattening an already flat mapping is a no-op. Later
// duplicate keys win. Anything else yields an empty map.
func Flatten(v interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	switch t := v.(type) {
	case map[string]interface{}:
		for k, vv := range t {
			out[k] = vv
		}
	case []interface{}:
		for _, item := range t {
			m, ok := item.(map[string]interface{})
			if !ok {
				continue
			}
			for k, vv := range m {
				out[k] = vv
			}
		}
	}
	return out
}

// Text returns property key as a string. Scalars are formatted, and
// objects/arrays are returned as JSON. Missing keys return "".
func (e *Event) Text(key string) string {
	if e == nil || key == "" {
		return ""
	}
	return toString(e.Properties[key])
}

// Body returns the plain-text body, falling back to the HTML body converted
// to markdown text when the plain body is empty.
func (e *Event) Body(keys Keys) (string, error) {
	if body := e.Text(keys.Body); strings.TrimSpace(body) != "" {
		return body, nil
	}
	html := e.Text(keys.HTMLBody)
	if strings.TrimSpace(html) == "" {
		return "", nil
	}
	text, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		return "", fmt.Errorf("convert html body: %w", err)
	}
	return text, nil
}

// IsStatus reports whether the event status equals want, ignoring case.
func (e *Event) IsStatus(want string) bool {
	return e != nil && strings.EqualFold(strings.TrimSpace(e.Status), strings.TrimSpace(want))
}

func toString(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case float64:
		if val == float64(int64(val)) {
			return strconv.FormatInt(int64(val), 10)
		}
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprintf("%v", val)
		}
		return string(b)
	}
}
