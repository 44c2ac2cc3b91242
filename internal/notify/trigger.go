package notify

import "strings"

// Recipient is a target of the downstream notification.
type Recipient struct {
	Type string `json:"recipientType"`
	ID   string `json:"id"`
}

// Trigger is the JSON body sent to the notification endpoint.
type Trigger struct {
	Properties map[string]string `json:"properties"`
	Recipients []Recipient       `json:"recipients,omitempty"`
}

// Context holds values merged into the trigger after extraction.
type Context struct {
	SubjectKey string
	Subject    string
	FromKey    string
	From       string
	// Recipient is added only when both its ID and Type are non-empty.
	Recipient Recipient
}

// BuildTrigger copies fields and merges the subject and sender under their
// keys, overriding extracted fields of the same name. Empty keys are skipped.
func BuildTrigger(fields map[string]string, c Context) Trigger {
	props := make(map[string]string, len(fields)+2)
	for k, v := range fields {
		props[k] = v
	}
	if c.SubjectKey != "" {
		props[c.SubjectKey] = c.Subject
	}
	if c.FromKey != "" {
		props[c.FromKey] = c.From
	}
	t := Trigger{Properties: props}
	if strings.TrimSpace(c.Recipient.ID) != "" && strings.TrimSpace(c.Recipient.Type) != "" {
		t.Recipients = []Recipient{{Type: strings.TrimSpace(c.Recipient.Type), ID: strings.TrimSpace(c.Recipient.ID)}}
	}
	return t
}
