package metrics

import (
	"crypto/subtle"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/benvon/rpc-relay/internal/request"
)

// Handler returns the Prometheus exposition handler for the recorder's
// registry, guarded by a bearer-token check against authToken. The metrics
// endpoint shares the relay's bypass secret: only the trusted caller may
// scrape it. An empty authToken disables the endpoint entirely.
func (r *Recorder) Handler(authToken string, log *zap.Logger) http.Handler {
	exposition := promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{
		ErrorHandling: promhttp.ContinueOnError,
	})

	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if authToken == "" {
			http.Error(w, "Not Found", http.StatusNotFound)
			return
		}
		token, ok := request.BearerToken(req)
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(authToken)) != 1 {
			log.Warn("metrics_scrape_unauthorized",
				zap.String("remote_addr", req.RemoteAddr),
			)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		exposition.ServeHTTP(w, req)
	})
}
