package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/benvon/rpc-relay/internal/registry"
)

// HealthChecker reports process liveness and basic configuration facts.
type HealthChecker struct {
	registry *registry.Registry
}

// NewHealthChecker creates a health checker over the endpoint registry.
func NewHealthChecker(reg *registry.Registry) *HealthChecker {
	return &HealthChecker{registry: reg}
}

// HealthCheck handles GET /healthz.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	response := map[string]any{
		"status":    "healthy",
		"networks":  h.registry.Len(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
