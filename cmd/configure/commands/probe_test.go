package commands

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/benvon/rpc-relay/internal/config"
)

func TestProbeEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("healthy endpoint", func(t *testing.T) {
		t.Parallel()
		var gotAuth string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"Geth/v1.13.0"}`))
		}))
		defer server.Close()

		version, err := probeEndpoint(context.Background(), config.Endpoint{URL: server.URL, AuthToken: "Bearer tok"})
		if err != nil {
			t.Fatalf("probeEndpoint() error = %v", err)
		}
		if version != "Geth/v1.13.0" {
			t.Errorf("version = %q", version)
		}
		if gotAuth != "Bearer tok" {
			t.Errorf("Authorization = %q, want Bearer tok", gotAuth)
		}
	})

	t.Run("http error", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "down", http.StatusBadGateway)
		}))
		defer server.Close()

		if _, err := probeEndpoint(context.Background(), config.Endpoint{URL: server.URL}); err == nil {
			t.Error("probeEndpoint() error = nil, want error")
		}
	})

	t.Run("rpc error", func(t *testing.T) {
		t.Parallel()
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
		}))
		defer server.Close()

		if _, err := probeEndpoint(context.Background(), config.Endpoint{URL: server.URL}); err == nil {
			t.Error("probeEndpoint() error = nil, want error")
		}
	})
}
