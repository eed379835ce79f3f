package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxPathLength is the maximum length for URL paths in logs
	MaxPathLength = 500
	// tokenPrefixLength is how many leading characters of a credential survive redaction
	tokenPrefixLength = 4
)

// RedactToken redacts a credential for logging. Tokens are never logged in
// full: only the first few characters survive, enough to tell configured
// credentials apart when debugging.
func RedactToken(token string) string {
	if token == "" {
		return ""
	}
	if len(token) <= tokenPrefixLength {
		return "****"
	}
	return token[:tokenPrefixLength] + "****"
}

// SanitizePath sanitizes a URL path for safe logging
// Removes control characters, truncates to MaxPathLength, and validates UTF-8
func SanitizePath(path string) string {
	if path == "" {
		return ""
	}

	// Validate and fix UTF-8 encoding
	if !utf8.ValidString(path) {
		path = strings.ToValidUTF8(path, "")
	}

	// Remove control characters (except space, tab, newline, carriage return)
	var builder strings.Builder
	builder.Grow(len(path))
	for _, r := range path {
		if unicode.IsPrint(r) || r == ' ' || r == '\t' || r == '\n' || r == '\r' {
			builder.WriteRune(r)
		}
	}
	path = builder.String()

	// Truncate to max length
	if len(path) > MaxPathLength {
		path = path[:MaxPathLength] + "..."
	}

	return path
}
