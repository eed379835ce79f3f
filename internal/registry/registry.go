// Package registry holds the immutable mapping from network slug to the
// ordered upstream endpoint list built from validated configuration.
package registry

import (
	"sort"

	"github.com/benvon/rpc-relay/internal/config"
)

// Registry resolves network slugs to their configured endpoint lists.
// Built once at startup and never mutated afterwards, so lookups need
// no synchronization.
type Registry struct {
	networks map[string][]config.Endpoint
}

// New builds a registry from a validated endpoints document. The document
// is copied so later mutation of the input cannot leak into the registry.
func New(doc config.EndpointsDocument) *Registry {
	networks := make(map[string][]config.Endpoint, len(doc))
	for slug, endpoints := range doc {
		list := make([]config.Endpoint, len(endpoints))
		copy(list, endpoints)
		networks[slug] = list
	}
	return &Registry{networks: networks}
}

// Resolve returns the endpoint list for slug in failover priority order.
// The second return is false when the slug is not configured.
func (r *Registry) Resolve(slug string) ([]config.Endpoint, bool) {
	endpoints, ok := r.networks[slug]
	return endpoints, ok
}

// Slugs returns the configured network slugs in sorted order.
func (r *Registry) Slugs() []string {
	slugs := make([]string, 0, len(r.networks))
	for slug := range r.networks {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs
}

// Len returns the number of configured networks.
func (r *Registry) Len() int {
	return len(r.networks)
}
