package telemetry

import (
	"context"
	"testing"
	"time"
)

// These tests mutate the global tracer provider (InitTracer registers it via
// otel.SetTracerProvider), so they do not run in parallel with each other or
// with the propagation tests in integration_test.go.

func TestInitTracer(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
	}{
		{
			name:     "local collector",
			endpoint: "localhost:4318",
		},
		{
			name:     "in-cluster collector",
			endpoint: "otel-collector.monitoring:4318",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			tp, err := InitTracer(ctx, "rpc-relay", tt.endpoint)
			if err != nil {
				t.Fatalf("InitTracer() error = %v", err)
			}
			if tp == nil {
				t.Fatal("InitTracer() returned nil provider")
			}

			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer shutdownCancel()
			if err := Shutdown(shutdownCtx, tp); err != nil {
				t.Errorf("Shutdown() error = %v", err)
			}
		})
	}
}

func TestShutdownNilProvider(t *testing.T) {
	if err := Shutdown(context.Background(), nil); err != nil {
		t.Errorf("Shutdown() with nil provider should not error, got: %v", err)
	}
}
