package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/benvon/rpc-relay/internal/config"
	"github.com/benvon/rpc-relay/internal/handlers"
	"github.com/benvon/rpc-relay/internal/logger"
	"github.com/benvon/rpc-relay/internal/metrics"
	"github.com/benvon/rpc-relay/internal/middleware"
	"github.com/benvon/rpc-relay/internal/proxy"
	"github.com/benvon/rpc-relay/internal/ratelimit"
	"github.com/benvon/rpc-relay/internal/registry"
	"github.com/benvon/rpc-relay/internal/telemetry"
)

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	debugMode := cfg.ServerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("endpoints_file", cfg.EndpointsFile),
		zap.Bool("rate_limit_enabled", cfg.RateLimitEnabled),
		zap.Int("rate_limit_rpm", cfg.RateLimitRPM),
		zap.Bool("bypass_token_configured", cfg.BypassToken != ""),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "rpc-relay", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Load the endpoint registry. Invalid configuration is fatal:
	// the relay never starts with a registry it cannot trust.
	doc, err := config.LoadEndpoints(cfg.EndpointsFile)
	if err != nil {
		zapLogger.Fatal("failed_to_load_endpoints", zap.Error(err))
	}
	reg := registry.New(doc)
	zapLogger.Info("endpoint_registry_loaded",
		zap.Int("networks", reg.Len()),
		zap.Strings("slugs", reg.Slugs()),
	)

	// Build the pipeline: one recorder, one gate, one forwarder, shared
	// by reference across all request handlers.
	recorder := metrics.NewRecorder(nil, zapLogger)
	gate := ratelimit.NewGate(cfg.Policy(), zapLogger)
	forwarder := proxy.NewForwarder(recorder, zapLogger)

	rpcHandler := handlers.NewRPCHandler(reg, gate, forwarder, recorder, zapLogger)
	healthChecker := handlers.NewHealthChecker(reg)

	// Setup router
	r := mux.NewRouter()

	zapLogger.Info("setting_up_middleware")

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("rpc-relay"))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.RequestID)
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	// Operational routes before the catch-all relay route
	r.HandleFunc("/healthz", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")
	r.Handle("/metrics", recorder.Handler(cfg.BypassToken, zapLogger)).Methods("GET")

	// The relay route matches any remaining single path segment
	rpcHandler.RegisterRoutes(r)

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		// Write timeout must outlast a full failover pass: each
		// endpoint gets an independent 10s attempt.
		WriteTimeout:   120 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = err
	}
}
