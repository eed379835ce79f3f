package request

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if len(parts) > 0 {
			return strings.TrimSpace(parts[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}

// CallerKey resolves the request's network address to a rate-limit key.
// The second return is false when no usable IP can be derived, e.g. a
// non-IP transport; callers treat that as "skip rate limiting".
func CallerKey(r *http.Request) (string, bool) {
	addr := ClientIP(r)
	if addr == "" {
		return "", false
	}
	if ip := net.ParseIP(addr); ip != nil {
		return ip.String(), true
	}
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return "", false
	}
	if ip := net.ParseIP(host); ip != nil {
		return ip.String(), true
	}
	return "", false
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The second return is false when the header is absent or not
// bearer-shaped.
func BearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	return parts[1], true
}
