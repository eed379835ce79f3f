// Package metrics implements the relay's Prometheus counters. The recorder
// is a passive observer of the forwarding pipeline: it is written to at
// each stage and never read back to make a routing decision.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const namespace = "rpc_relay"

// Recorder owns the four pipeline counters on a private registry.
// A single instance is constructed at startup and shared by reference
// between the request pipeline and the exposition handler.
type Recorder struct {
	registry *prometheus.Registry
	log      *zap.Logger

	requestsReceived *prometheus.CounterVec
	forwardAttempts  *prometheus.CounterVec
	upstreamOutcomes *prometheus.CounterVec
	clientResponses  *prometheus.CounterVec
}

// NewRecorder creates and registers the pipeline counters on a fresh
// registry. If registry is nil a private one is created.
func NewRecorder(registry *prometheus.Registry, log *zap.Logger) *Recorder {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	if log == nil {
		log = zap.NewNop()
	}

	r := &Recorder{
		registry: registry,
		log:      log,

		requestsReceived: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_received_total",
				Help:      "Total inbound RPC requests, by network and caller trust",
			},
			[]string{"network", "trusted"},
		),
		forwardAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "forward_attempts_total",
				Help:      "Total upstream forwarding attempts, by network and endpoint",
			},
			[]string{"network", "endpoint"},
		),
		upstreamOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "upstream_outcomes_total",
				Help:      "Per-attempt upstream outcomes, by network, endpoint, HTTP status and outcome kind",
			},
			[]string{"network", "endpoint", "status", "outcome"},
		),
		clientResponses: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "client_responses_total",
				Help:      "Final responses returned to callers, by network and HTTP status",
			},
			[]string{"network", "status"},
		),
	}

	registry.MustRegister(
		r.requestsReceived,
		r.forwardAttempts,
		r.upstreamOutcomes,
		r.clientResponses,
	)

	return r
}

// Registry exposes the underlying registry for the exposition handler.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// RecordReceived counts an inbound request once trust has been determined.
func (r *Recorder) RecordReceived(network string, trusted bool) {
	r.inc(r.requestsReceived, network, strconv.FormatBool(trusted))
}

// RecordAttempt counts one forwarding attempt to an endpoint.
func (r *Recorder) RecordAttempt(network, endpoint string) {
	r.inc(r.forwardAttempts, network, endpoint)
}

// RecordUpstreamOutcome counts the outcome of one forwarding attempt.
// status is the upstream HTTP status code, or 0 when no response arrived
// (timeouts and transport failures), recorded as the sentinel "none".
func (r *Recorder) RecordUpstreamOutcome(network, endpoint string, status int, outcome string) {
	statusLabel := "none"
	if status > 0 {
		statusLabel = strconv.Itoa(status)
	}
	r.inc(r.upstreamOutcomes, network, endpoint, statusLabel, outcome)
}

// RecordResponse counts the final status returned to the caller.
func (r *Recorder) RecordResponse(network string, status int) {
	r.inc(r.clientResponses, network, strconv.Itoa(status))
}

// inc increments a counter, swallowing any metrics-subsystem panic so that
// recording can never fail the request path.
func (r *Recorder) inc(c *prometheus.CounterVec, labels ...string) {
	defer func() {
		if err := recover(); err != nil {
			r.log.Error("metrics_increment_failed", zap.Any("error", err))
		}
	}()
	c.WithLabelValues(labels...).Inc()
}
