// Package proxy implements the forwarding engine: ordered failover across a
// network's upstream endpoints, one independent deadline per attempt.
package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/rpc-relay/internal/config"
	"github.com/benvon/rpc-relay/internal/metrics"
)

// Attempt outcome kinds, recorded as metric labels.
const (
	OutcomeSuccess      = "success"
	OutcomeTimeout      = "timeout"
	OutcomeNetworkError = "network_error"
	OutcomeHTTPError    = "http_error"
	OutcomeParseError   = "parse_error"
)

// DefaultAttemptTimeout bounds each upstream attempt independently. The
// clock starts at the beginning of that attempt, not cumulatively across
// the failover loop.
const DefaultAttemptTimeout = 10 * time.Second

// ErrAllEndpointsFailed reports that every configured endpoint for a
// network was attempted without a usable response.
var ErrAllEndpointsFailed = errors.New("all configured endpoints failed")

// Forwarder issues upstream JSON-RPC calls with per-attempt timeouts and
// sequential failover. A single instance is shared by all request handlers;
// it keeps no per-request state.
type Forwarder struct {
	client         *http.Client
	attemptTimeout time.Duration
	metrics        *metrics.Recorder
	log            *zap.Logger
}

// Option configures a Forwarder.
type Option func(*Forwarder)

// WithAttemptTimeout overrides the per-attempt deadline.
func WithAttemptTimeout(d time.Duration) Option {
	return func(f *Forwarder) { f.attemptTimeout = d }
}

// WithHTTPClient overrides the upstream HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Forwarder) { f.client = c }
}

// NewForwarder creates a forwarder recording to rec.
func NewForwarder(rec *metrics.Recorder, log *zap.Logger, opts ...Option) *Forwarder {
	f := &Forwarder{
		client:         &http.Client{},
		attemptTimeout: DefaultAttemptTimeout,
		metrics:        rec,
		log:            log,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Forward tries each endpoint in list order and returns the first upstream
// body that arrived with a 2xx status and parsed as JSON, re-serialized.
// Every other per-attempt failure is logged, counted, and absorbed; only
// exhausting the whole list surfaces an error (ErrAllEndpointsFailed).
func (f *Forwarder) Forward(network string, endpoints []config.Endpoint, body []byte) ([]byte, error) {
	for _, ep := range endpoints {
		f.metrics.RecordAttempt(network, ep.URL)

		payload, status, outcome, err := f.attempt(ep, body)
		f.metrics.RecordUpstreamOutcome(network, ep.URL, status, outcome)

		if outcome == OutcomeSuccess {
			f.log.Debug("upstream_attempt_succeeded",
				zap.String("network", network),
				zap.String("endpoint", ep.URL),
				zap.Int("status", status),
			)
			return payload, nil
		}

		f.log.Warn("upstream_attempt_failed",
			zap.String("network", network),
			zap.String("endpoint", ep.URL),
			zap.String("outcome", outcome),
			zap.Int("status", status),
			zap.Error(err),
		)
	}

	return nil, fmt.Errorf("network %q: %w", network, ErrAllEndpointsFailed)
}

// attempt performs one upstream call. The returned status is 0 when no
// HTTP response arrived. The context deliberately derives from
// context.Background() rather than the inbound request: a disconnecting
// client does not tear down in-flight upstream work.
func (f *Forwarder) attempt(ep config.Endpoint, body []byte) (payload []byte, status int, outcome string, err error) {
	ctx, cancel := context.WithTimeout(context.Background(), f.attemptTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ep.URL, bytes.NewReader(body))
	if err != nil {
		return nil, 0, OutcomeNetworkError, err
	}
	req.Header.Set("Content-Type", "application/json")
	if ep.AuthToken != "" {
		// Injected verbatim, for this endpoint only. There is no
		// fallback to any shared credential.
		req.Header.Set("Authorization", ep.AuthToken)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, 0, OutcomeTimeout, err
		}
		return nil, 0, OutcomeNetworkError, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused; the body is never
		// surfaced to the caller.
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, resp.StatusCode, OutcomeHTTPError, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, resp.StatusCode, OutcomeTimeout, err
		}
		return nil, resp.StatusCode, OutcomeNetworkError, err
	}

	reserialized, err := reserializeJSON(raw)
	if err != nil {
		// A malformed success is a failure: never returned to the caller.
		return nil, resp.StatusCode, OutcomeParseError, err
	}

	return reserialized, resp.StatusCode, OutcomeSuccess, nil
}

// reserializeJSON parses raw as JSON and marshals it back, proving the
// upstream body is well-formed before it reaches the caller. Numbers are
// decoded as json.Number so large JSON-RPC values round-trip unchanged.
func reserializeJSON(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse upstream body: %w", err)
	}

	out, err := json.Marshal(parsed)
	if err != nil {
		return nil, fmt.Errorf("reserialize upstream body: %w", err)
	}
	return out, nil
}

// isTimeout reports whether err is a deadline or network timeout.
func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
