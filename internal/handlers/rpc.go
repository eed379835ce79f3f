package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/benvon/rpc-relay/internal/metrics"
	"github.com/benvon/rpc-relay/internal/proxy"
	"github.com/benvon/rpc-relay/internal/ratelimit"
	"github.com/benvon/rpc-relay/internal/registry"
)

// RPCHandler is the relay's single entry point: it gates the caller, resolves
// the network slug, validates the payload, and drives the failover loop.
type RPCHandler struct {
	registry  *registry.Registry
	gate      *ratelimit.Gate
	forwarder *proxy.Forwarder
	metrics   *metrics.Recorder
	log       *zap.Logger
}

// NewRPCHandler wires the pipeline components together.
func NewRPCHandler(reg *registry.Registry, gate *ratelimit.Gate, fwd *proxy.Forwarder, rec *metrics.Recorder, log *zap.Logger) *RPCHandler {
	return &RPCHandler{
		registry:  reg,
		gate:      gate,
		forwarder: fwd,
		metrics:   rec,
		log:       log,
	}
}

// RegisterRoutes mounts the relay route on the router. The path variable
// matches any single segment; method filtering happens inside the handler
// so 405 responses can carry an Allow header.
func (h *RPCHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/{network}", h.Relay)
}

// Relay handles POST /{network}.
//
// Stage order is fixed: gate (429) -> slug lookup (404) -> method (405) ->
// body (400) -> failover loop (200 or 502). Each terminal response is
// counted against the network it targeted.
func (h *RPCHandler) Relay(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["network"]

	decision := h.gate.Evaluate(r)
	h.metrics.RecordReceived(slug, decision == ratelimit.Trusted)

	if decision == ratelimit.Denied {
		h.log.Info("request_rate_limited",
			zap.String("network", slug),
			zap.String("remote_addr", r.RemoteAddr),
		)
		h.gate.WriteRateLimited(w)
		h.metrics.RecordResponse(slug, http.StatusTooManyRequests)
		return
	}

	endpoints, ok := h.registry.Resolve(slug)
	if !ok {
		h.respondError(w, slug, http.StatusNotFound, "Network not configured: "+slug)
		return
	}

	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		h.respondError(w, slug, http.StatusMethodNotAllowed, "Method Not Allowed: only POST is accepted")
		return
	}

	raw, err := io.ReadAll(r.Body)
	if err != nil {
		h.respondError(w, slug, http.StatusBadRequest, "Bad Request: unable to read request body")
		return
	}

	payload, err := normalizeRequestBody(raw)
	if err != nil {
		h.respondError(w, slug, http.StatusBadRequest, "Bad Request: body must be a JSON object or array")
		return
	}

	upstream, err := h.forwarder.Forward(slug, endpoints, payload)
	if err != nil {
		h.respondError(w, slug, http.StatusBadGateway,
			fmt.Sprintf("Bad Gateway: All configured RPC endpoints for network '%s' failed.", slug))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(upstream); err != nil {
		h.log.Warn("failed_to_write_response",
			zap.String("network", slug),
			zap.Error(err),
		)
	}
	h.metrics.RecordResponse(slug, http.StatusOK)
}

// respondError writes a fixed plain-text failure and counts it. No internal
// detail ever reaches the caller.
func (h *RPCHandler) respondError(w http.ResponseWriter, slug string, status int, message string) {
	http.Error(w, message, status)
	h.metrics.RecordResponse(slug, status)
}

// normalizeRequestBody parses raw as JSON and re-serializes it. Only
// objects and arrays are accepted as JSON-RPC payloads; bare scalars and
// null are rejected. Numbers decode as json.Number so values round-trip
// without precision loss.
func normalizeRequestBody(raw []byte) ([]byte, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("parse request body: %w", err)
	}

	switch parsed.(type) {
	case map[string]any, []any:
	default:
		return nil, fmt.Errorf("request body must be a JSON object or array")
	}

	// Decode stops after the first value; anything left over means the
	// body was not a single JSON document.
	if err := dec.Decode(new(any)); err != io.EOF {
		return nil, fmt.Errorf("request body contains trailing data")
	}

	return json.Marshal(parsed)
}
