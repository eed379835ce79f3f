package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/cors"
)

// CORS wraps the router with rs/cors configured from a comma-separated
// origins string. An empty string allows any origin, which suits a public
// RPC relay; the core handler never varies behavior by origin. OPTIONS
// preflight requests are answered here and never reach the relay pipeline.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	origins := splitOrigins(allowedOrigins)

	opts := cors.Options{
		AllowedMethods: []string{http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         86400,
	}
	if len(origins) > 0 {
		opts.AllowedOrigins = origins
	} else {
		opts.AllowedOrigins = []string{"*"}
	}

	c := cors.New(opts)
	return c.Handler
}

func splitOrigins(raw string) []string {
	var origins []string
	for _, origin := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
