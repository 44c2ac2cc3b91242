package common

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"
)

// MaskedValue replaces any value considered sensitive.
const MaskedValue = "***MASKED***"

// SensitivePattern represents a pattern to detect and mask sensitive information
type SensitivePattern struct {
	Name        string         // Pattern name (e.g., "password", "api_key")
	Regex       *regexp.Regexp // Regular expression to match sensitive data
	Replacement string         // Replacement string
	Keys        []string       // Attribute keys masked outright (case-insensitive)
}

// DefaultSensitivePatterns covers credentials that can appear in notify
// configuration, request headers and error bodies.
var DefaultSensitivePatterns = []SensitivePattern{
	{
		Name:        "bearer_token",
		Regex:       regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
		Replacement: "Bearer " + MaskedValue,
	},
	{
		Name:        "basic_auth",
		Regex:       regexp.MustCompile(`(?i)Basic\s+[A-Za-z0-9+/]+=*`),
		Replacement: "Basic " + MaskedValue,
	},
	{
		Name:        "password",
		Regex:       regexp.MustCompile(`(?i)(password|passwd|pwd)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}":"` + MaskedValue + `"`,
		Keys:        []string{"password", "passwd", "pwd"},
	},
	{
		Name:        "api_key",
		Regex:       regexp.MustCompile(`(?i)(x[_-]api[_-]key|api[_-]?key|apikey)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}":"` + MaskedValue + `"`,
		Keys:        []string{"api_key", "apikey", "api-key", "x-api-key"},
	},
	{
		Name:        "token",
		Regex:       regexp.MustCompile(`(?i)(token|access[_-]?token|auth[_-]?token)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}":"` + MaskedValue + `"`,
		Keys:        []string{"token", "access_token", "auth_token"},
	},
	{
		Name:        "authorization",
		Keys:        []string{"authorization"},
		Regex:       regexp.MustCompile(`(?i)(authorization)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}":"` + MaskedValue + `"`,
	},
	{
		Name:        "secret",
		Regex:       regexp.MustCompile(`(?i)(secret|client[_-]?secret)["'\s]*[:=]["'\s]*([^"',}\]\s]+)`),
		Replacement: `${1}":"` + MaskedValue + `"`,
		Keys:        []string{"secret", "client_secret"},
	},
}

// Masker handles masking of sensitive information in logs
type Masker struct {
	patterns []SensitivePattern
	enabled  atomic.Bool
}

// NewMasker creates a new masker with default patterns
func NewMasker() *Masker {
	return NewMaskerWithPatterns(DefaultSensitivePatterns)
}

// NewMaskerWithPatterns creates a new masker with custom patterns
func NewMaskerWithPatterns(patterns []SensitivePattern) *Masker {
	m := &Masker{patterns: append([]SensitivePattern(nil), patterns...)}
	m.enabled.Store(true)
	return m
}

// SetEnabled enables or disables masking
func (m *Masker) SetEnabled(enabled bool) {
	m.enabled.Store(enabled)
}

// IsEnabled returns whether masking is enabled
func (m *Masker) IsEnabled() bool {
	return m.enabled.Load()
}

// AddPattern adds a pattern. When Regex is nil one is built from Keys.
func (m *Masker) AddPattern(pattern SensitivePattern) {
	if pattern.Regex == nil && len(pattern.Keys) > 0 {
		keys := make([]string, len(pattern.Keys))
		for i, k := range pattern.Keys {
			keys[i] = regexp.QuoteMeta(k)
		}
		pattern.Regex = regexp.MustCompile(fmt.Sprintf(`(?i)\b(%s)\s*[:=]\s*['"]?([^'",\s}\]]+)['"]?`, strings.Join(keys, "|")))
		if pattern.Replacement == "" {
			pattern.Replacement = `$1:"` + MaskedValue + `"`
		}
	}
	m.patterns = append(m.patterns, pattern)
}

// MaskString masks sensitive information in a string
func (m *Masker) MaskString(input string) string {
	if !m.IsEnabled() {
		return input
	}
	result := input
	for _, p := range m.patterns {
		if p.Regex != nil {
			result = p.Regex.ReplaceAllString(result, p.Replacement)
		}
	}
	return result
}

// MaskValue masks value outright when key is sensitive and otherwise applies
// the regex patterns to its string form. Non-string values pass through.
func (m *Masker) MaskValue(key string, value interface{}) interface{} {
	if !m.IsEnabled() {
		return value
	}
	lower := strings.ToLower(key)
	for _, p := range m.patterns {
		for _, k := range p.Keys {
			if lower == strings.ToLower(k) {
				return MaskedValue
			}
		}
	}
	switch v := value.(type) {
	case string:
		return m.MaskString(v)
	case error:
		return m.MaskString(v.Error())
	default:
		return value
	}
}

var globalMasker = NewMasker()

// GetGlobalMasker returns the global masker instance
func GetGlobalMasker() *Masker {
	return globalMasker
}

// MaskSensitiveData masks sensitive data using the global masker
func MaskSensitiveData(input string) string {
	return globalMasker.MaskString(input)
}

// EnableMasking enables/disables global masking
func EnableMasking(enabled bool) {
	globalMasker.SetEnabled(enabled)
}

// IsMaskingEnabled returns whether global masking is enabled
func IsMaskingEnabled() bool {
	return globalMasker.IsEnabled()
}
