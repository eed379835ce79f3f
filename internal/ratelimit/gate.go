// Package ratelimit implements the trust and rate gate that fronts the
// forwarding pipeline. A caller presenting the bypass secret is trusted and
// exempt from limiting; everyone else is counted per IP against a
// fixed-reset window.
package ratelimit

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	"go.uber.org/zap"

	"github.com/benvon/rpc-relay/internal/config"
	"github.com/benvon/rpc-relay/internal/logger"
	"github.com/benvon/rpc-relay/internal/request"
)

// Decision is the gate's verdict for one request.
type Decision int

const (
	// Trusted callers presented the bypass secret; limiting is skipped.
	Trusted Decision = iota
	// Admitted callers are public and within their window budget.
	Admitted
	// Denied callers exceeded the per-IP ceiling for the current window.
	Denied
)

// RetryAfterSeconds is the fixed Retry-After value on 429 responses. The
// window is one minute, so a denied caller can always retry after that.
const RetryAfterSeconds = 60

// Gate evaluates caller trust and applies the per-IP rate limit. It owns
// the only mutable rate-limit state in the process: the limiter's in-memory
// counter store, which expires each counter one window after the first
// request that created it. That is a fixed-reset window, not a sliding one:
// bursts of up to twice the ceiling are possible straddling a window
// boundary, which is the intended behavior. The store's cleanup interval
// sweeps stale windows so the map does not grow without bound.
type Gate struct {
	policy  config.RateLimitPolicy
	limiter *limiter.Limiter
	log     *zap.Logger
}

// NewGate builds a gate for the given policy. The counter store is private
// to the gate; a fresh gate starts with empty windows.
func NewGate(policy config.RateLimitPolicy, log *zap.Logger) *Gate {
	return newGateWithPeriod(policy, time.Minute, log)
}

// newGateWithPeriod exists so tests can shrink the window.
func newGateWithPeriod(policy config.RateLimitPolicy, period time.Duration, log *zap.Logger) *Gate {
	g := &Gate{policy: policy, log: log}
	if policy.Enabled {
		store := memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          "ratelimit",
			CleanUpInterval: period,
		})
		g.limiter = limiter.New(store, limiter.Rate{
			Period: period,
			Limit:  int64(policy.RPM),
		})
	}
	return g
}

// Evaluate determines whether the request is trusted, admitted, or denied.
// Only Denied is terminal; the gate never rejects for any other reason.
func (g *Gate) Evaluate(r *http.Request) Decision {
	if token, ok := request.BearerToken(r); ok {
		if g.policy.BypassToken != "" &&
			subtle.ConstantTimeCompare([]byte(token), []byte(g.policy.BypassToken)) == 1 {
			return Trusted
		}
		// A mismatched bypass token is suspicious but not a rejection:
		// the caller falls through to ordinary rate limiting.
		g.log.Warn("bypass_token_mismatch",
			zap.String("remote_addr", r.RemoteAddr),
			zap.String("token", logger.RedactToken(token)),
		)
	}

	if !g.policy.Enabled {
		return Admitted
	}

	key, ok := request.CallerKey(r)
	if !ok {
		// Non-IP transports have no usable rate-limit key. Admitting
		// them is an intentional gap.
		g.log.Warn("caller_address_unresolvable_skipping_rate_limit",
			zap.String("remote_addr", r.RemoteAddr),
		)
		return Admitted
	}

	lctx, err := g.limiter.Get(r.Context(), key)
	if err != nil {
		// Fail open: a limiter-store error must not take down the relay.
		g.log.Error("rate_limit_store_error", zap.Error(err))
		return Admitted
	}

	if lctx.Reached {
		g.log.Info("rate_limit_exceeded",
			zap.String("caller", key),
			zap.Int64("limit", lctx.Limit),
		)
		return Denied
	}

	return Admitted
}

// WriteRateLimited writes the gate's terminal 429 response. This is the
// only response the gate itself produces.
func (g *Gate) WriteRateLimited(w http.ResponseWriter) {
	w.Header().Set("Retry-After", fmt.Sprintf("%d", RetryAfterSeconds))
	w.Header().Set("X-RateLimit-Limit", fmt.Sprintf("%d", g.policy.RPM))
	http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
}
