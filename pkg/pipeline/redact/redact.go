// Package redact scrubs credentials out of strings before they reach logs or HTTP
// error bodies.
package redact

import (
	"regexp"
	"strings"
)

const mask = "<redacted>"

var (
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// api_key=..., GEMINI_API_KEY: ..., x-goog-api-key: ...
	apiKeyKVRe = regexp.MustCompile(`(?i)\b((?:x-goog-)?api[_-]?key|gemini[_-]?api[_-]?key)\b(\s*[:=]\s*)[^\s"'&]+`)

	// ?key=... or &key=... in request URLs.
	queryKeyRe = regexp.MustCompile(`([?&]key=)[^\s"'&]+`)
)

// Secrets removes obvious secret-bearing substrings from s. Key names are kept so the
// message still says what was hidden.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	out := bearerTokenRe.ReplaceAllString(s, "Bearer "+mask)
	out = apiKeyKVRe.ReplaceAllString(out, "${1}${2}"+mask)
	out = queryKeyRe.ReplaceAllString(out, "${1}"+mask)
	return strings.TrimSpace(out)
}

// Error is Secrets applied to err.Error(). A nil error yields "".
func Error(err error) string {
	if err == nil {
		return ""
	}
	return Secrets(err.Error())
}
