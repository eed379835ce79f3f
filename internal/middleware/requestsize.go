package middleware

import (
	"net/http"
)

// DefaultMaxRequestSize caps request bodies at 1MB. JSON-RPC payloads are
// small; anything larger is abuse.
const DefaultMaxRequestSize int64 = 1 << 20

// MaxRequestSize limits the size of request bodies. Bodies over the cap
// produce a read error in the handler, which surfaces as a 400 rather than
// a separate 413 path.
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			defer r.Body.Close()

			next.ServeHTTP(w, r)
		})
	}
}
