package proxy

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/benvon/rpc-relay/internal/config"
	"github.com/benvon/rpc-relay/internal/metrics"
)

func newForwarder(t *testing.T, opts ...Option) *Forwarder {
	t.Helper()
	rec := metrics.NewRecorder(nil, zap.NewNop())
	return NewForwarder(rec, zap.NewNop(), opts...)
}

func TestForwardFailoverToSecondEndpoint(t *testing.T) {
	t.Parallel()

	var hitsB atomic.Int32

	// A refuses connections: start then immediately close its listener.
	serverA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverA.Close()

	serverB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitsB.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"result":"0x10"}`))
	}))
	defer serverB.Close()

	f := newForwarder(t)
	endpoints := []config.Endpoint{{URL: serverA.URL}, {URL: serverB.URL}}

	body, err := f.Forward("ethereum", endpoints, []byte(`{"jsonrpc":"2.0","id":1,"method":"eth_blockNumber"}`))
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if string(body) != `{"id":1,"jsonrpc":"2.0","result":"0x10"}` {
		t.Errorf("Forward() body = %s", body)
	}
	if hitsB.Load() != 1 {
		t.Errorf("endpoint B hits = %d, want 1", hitsB.Load())
	}
}

func TestForwardAllEndpointsFail(t *testing.T) {
	t.Parallel()

	var hitsA, hitsB atomic.Int32

	// A returns a non-2xx status.
	serverA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitsA.Add(1)
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer serverA.Close()

	// B exceeds the attempt deadline.
	serverB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitsB.Add(1)
		time.Sleep(300 * time.Millisecond)
	}))
	defer serverB.Close()

	f := newForwarder(t, WithAttemptTimeout(50*time.Millisecond))
	endpoints := []config.Endpoint{{URL: serverA.URL}, {URL: serverB.URL}}

	_, err := f.Forward("ethereum", endpoints, []byte(`{}`))
	if !errors.Is(err, ErrAllEndpointsFailed) {
		t.Fatalf("Forward() error = %v, want ErrAllEndpointsFailed", err)
	}
	if hitsA.Load() != 1 {
		t.Errorf("endpoint A hits = %d, want exactly 1", hitsA.Load())
	}
	if hitsB.Load() != 1 {
		t.Errorf("endpoint B hits = %d, want exactly 1", hitsB.Load())
	}
}

func TestForwardFirstSuccessShortCircuits(t *testing.T) {
	t.Parallel()

	var hitsB atomic.Int32

	serverA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"from A"}`))
	}))
	defer serverA.Close()

	serverB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitsB.Add(1)
		_, _ = w.Write([]byte(`{"result":"from B"}`))
	}))
	defer serverB.Close()

	f := newForwarder(t)
	body, err := f.Forward("ethereum", []config.Endpoint{{URL: serverA.URL}, {URL: serverB.URL}}, []byte(`{}`))
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if string(body) != `{"result":"from A"}` {
		t.Errorf("Forward() body = %s", body)
	}
	if hitsB.Load() != 0 {
		t.Errorf("endpoint B hits = %d, want 0", hitsB.Load())
	}
}

func TestForwardMalformedSuccessFailsOver(t *testing.T) {
	t.Parallel()

	serverA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 2xx but not JSON: treated as a failure, never surfaced.
		_, _ = w.Write([]byte(`<html>gateway error</html>`))
	}))
	defer serverA.Close()

	serverB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	defer serverB.Close()

	f := newForwarder(t)
	body, err := f.Forward("ethereum", []config.Endpoint{{URL: serverA.URL}, {URL: serverB.URL}}, []byte(`{}`))
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if string(body) != `{"result":"ok"}` {
		t.Errorf("Forward() body = %s", body)
	}
}

func TestForwardRPCErrorOverHTTP200IsSuccess(t *testing.T) {
	t.Parallel()

	var hitsB atomic.Int32

	serverA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// JSON-RPC-level errors ride an HTTP 200: passed straight through.
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","id":1,"error":{"code":-32601,"message":"method not found"}}`))
	}))
	defer serverA.Close()

	serverB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hitsB.Add(1)
	}))
	defer serverB.Close()

	f := newForwarder(t)
	body, err := f.Forward("ethereum", []config.Endpoint{{URL: serverA.URL}, {URL: serverB.URL}}, []byte(`{}`))
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if string(body) == "" {
		t.Fatal("Forward() returned empty body")
	}
	if hitsB.Load() != 0 {
		t.Errorf("endpoint B hits = %d, want 0", hitsB.Load())
	}
}

func TestForwardAuthHeaderPerEndpoint(t *testing.T) {
	t.Parallel()

	var gotAuthA, gotAuthB string
	var hasAuthB bool

	serverA := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthA = r.Header.Get("Authorization")
		http.Error(w, "no", http.StatusBadGateway)
	}))
	defer serverA.Close()

	serverB := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthB = r.Header.Get("Authorization")
		_, hasAuthB = r.Header["Authorization"]
		_, _ = w.Write([]byte(`{"result":"ok"}`))
	}))
	defer serverB.Close()

	f := newForwarder(t)
	endpoints := []config.Endpoint{
		{URL: serverA.URL, AuthToken: "Bearer endpoint-a-secret"},
		{URL: serverB.URL},
	}
	if _, err := f.Forward("ethereum", endpoints, []byte(`{}`)); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}

	if gotAuthA != "Bearer endpoint-a-secret" {
		t.Errorf("endpoint A Authorization = %q, want the configured token verbatim", gotAuthA)
	}
	if hasAuthB || gotAuthB != "" {
		t.Errorf("endpoint B Authorization = %q, want no header at all", gotAuthB)
	}
}

func TestForwardContentTypeHeader(t *testing.T) {
	t.Parallel()

	var gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotContentType = r.Header.Get("Content-Type")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	f := newForwarder(t)
	if _, err := f.Forward("ethereum", []config.Endpoint{{URL: server.URL}}, []byte(`{}`)); err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if gotContentType != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", gotContentType)
	}
}

func TestForwardIdempotentReserialization(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": 9007199254740993, "result": "0xff"}`))
	}))
	defer server.Close()

	f := newForwarder(t)
	endpoints := []config.Endpoint{{URL: server.URL}}

	first, err := f.Forward("ethereum", endpoints, []byte(`{}`))
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	second, err := f.Forward("ethereum", endpoints, []byte(`{}`))
	if err != nil {
		t.Fatalf("Forward() error = %v", err)
	}
	if string(first) != string(second) {
		t.Errorf("repeated calls differ: %s vs %s", first, second)
	}
	// Large integers survive the parse/reserialize round trip.
	if want := `{"id":9007199254740993,"result":"0xff"}`; string(first) != want {
		t.Errorf("body = %s, want %s", first, want)
	}
}

func TestReserializeJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		raw     string
		want    string
		wantErr bool
	}{
		{"object", `{"a": 1}`, `{"a":1}`, false},
		{"array", `[1, 2]`, `[1,2]`, false},
		{"scalar is still valid upstream JSON", `42`, `42`, false},
		{"truncated", `{"a":`, "", true},
		{"empty", ``, "", true},
		{"html", `<html>`, "", true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := reserializeJSON([]byte(tt.raw))
			if (err != nil) != tt.wantErr {
				t.Fatalf("reserializeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && string(got) != tt.want {
				t.Errorf("reserializeJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}
