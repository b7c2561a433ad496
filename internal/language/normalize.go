// Package language normalizes the language tags that arrive on
// translate requests and account configuration before they reach
// cache keys and provider calls.
package language

import "strings"

// legacyCodes maps withdrawn ISO 639-1 codes to their replacements.
// Both forms still show up in client payloads.
var legacyCodes = map[string]string{
	"iw": "he",
	"in": "id",
	"ji": "yi",
}

// NormalizeTag lowercases a language tag, converts "_" separators to
// "-", and rewrites legacy primary subtags. Returns an empty string
// when the value is blank or contains invalid characters.
func NormalizeTag(raw string) string {
	trimmed := strings.ToLower(strings.TrimSpace(raw))
	if trimmed == "" {
		return ""
	}

	trimmed = strings.ReplaceAll(trimmed, "_", "-")
	parts := strings.Split(trimmed, "-")
	normalized := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if !isAlphaLower(part) {
			return ""
		}
		normalized = append(normalized, part)
	}

	if len(normalized) == 0 {
		return ""
	}
	if replacement, ok := legacyCodes[normalized[0]]; ok {
		normalized[0] = replacement
	}
	return strings.Join(normalized, "-")
}

// NormalizeCode returns the primary language subtag (for example, "en"
// from "en-US"). Cache keys and provider calls use the primary subtag.
func NormalizeCode(raw string) string {
	tag := NormalizeTag(raw)
	if tag == "" {
		return ""
	}
	if dash := strings.IndexByte(tag, '-'); dash >= 0 {
		return tag[:dash]
	}
	return tag
}

func isAlphaLower(value string) bool {
	for _, r := range value {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}
