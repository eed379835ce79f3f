package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Endpoint is a single upstream JSON-RPC provider. AuthToken, when set, is
// sent verbatim as the Authorization header value for this endpoint only.
type Endpoint struct {
	URL       string `json:"url" yaml:"url" validate:"required,url"`
	AuthToken string `json:"authToken,omitempty" yaml:"authToken,omitempty"`
}

// EndpointsDocument maps a network slug to its ordered endpoint list.
// List order is failover priority: the first entry is the primary.
type EndpointsDocument map[string][]Endpoint

var validate = validator.New()

// LoadEndpoints reads and validates the endpoints document at path.
// JSON and YAML are supported, selected by file extension.
func LoadEndpoints(path string) (EndpointsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read endpoints file: %w", err)
	}

	var doc EndpointsDocument
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse endpoints YAML: %w", err)
		}
	default:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse endpoints JSON: %w", err)
		}
	}

	if err := ValidateEndpoints(doc); err != nil {
		return nil, err
	}

	return doc, nil
}

// ValidateEndpoints checks the structural invariants of an endpoints
// document: at least one network, every network has at least one endpoint,
// and every endpoint carries a well-formed URL.
func ValidateEndpoints(doc EndpointsDocument) error {
	if len(doc) == 0 {
		return fmt.Errorf("endpoints document configures no networks")
	}

	// Deterministic error ordering for operators and tests
	slugs := make([]string, 0, len(doc))
	for slug := range doc {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	for _, slug := range slugs {
		if strings.TrimSpace(slug) == "" {
			return fmt.Errorf("endpoints document contains an empty network slug")
		}
		if strings.ContainsAny(slug, "/ ") {
			return fmt.Errorf("network slug %q must not contain slashes or spaces", slug)
		}
		endpoints := doc[slug]
		if len(endpoints) == 0 {
			return fmt.Errorf("network %q has no endpoints", slug)
		}
		for i, ep := range endpoints {
			if err := validate.Struct(ep); err != nil {
				return fmt.Errorf("network %q endpoint %d: %w", slug, i, err)
			}
		}
	}

	return nil
}
