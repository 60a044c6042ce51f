package utils

import (
	"regexp"
	"strings"
	"unicode"
)

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// SanitizeString trims whitespace and drops control characters. Values are
// stored as written; HTML escaping happens when a response is JSON encoded.
func SanitizeString(input string) string {
	return removeControlChars(strings.TrimSpace(input))
}

// NormalizeEmail lower-cases and trims an address and strips markup and control characters.
func NormalizeEmail(email string) string {
	email = strings.ToLower(strings.TrimSpace(email))
	email = stripHTML(email)
	return removeControlChars(email)
}

// SanitizeText sanitizes multi-line text input, keeping line breaks and tabs.
func SanitizeText(input string) string {
	var result strings.Builder
	for _, r := range strings.TrimSpace(input) {
		if unicode.IsPrint(r) || r == '\n' || r == '\t' || r == '\r' {
			result.WriteRune(r)
		}
	}

	return result.String()
}

// SanitizePayload walks a decoded JSON body and cleans every string value in place.
// Keys starting with '$' or containing '.' are dropped so they can never reach a query.
func SanitizePayload(payload map[string]any) {
	for key, value := range payload {
		if strings.HasPrefix(key, "$") || strings.Contains(key, ".") {
			delete(payload, key)
			continue
		}
		payload[key] = sanitizeValue(value)
	}
}

func sanitizeValue(value any) any {
	switch v := value.(type) {
	case string:
		return SanitizeText(v)
	case map[string]any:
		SanitizePayload(v)
		return v
	case []any:
		for i := range v {
			v[i] = sanitizeValue(v[i])
		}
		return v
	default:
		return v
	}
}

func stripHTML(input string) string {
	return htmlTagPattern.ReplaceAllString(input, "")
}

func removeControlChars(input string) string {
	var result strings.Builder
	for _, r := range input {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			result.WriteRune(r)
		}
	}
	return result.String()
}
