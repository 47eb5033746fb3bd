package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// ServerOption configures optional metrics server behavior.
type ServerOption func(*mux.Router)

// WithOTelMiddleware traces incoming requests other than metrics scrapes, so
// health probes and the journal checks they run show up as spans.
func WithOTelMiddleware(serviceName, metricsPath string) ServerOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != metricsPath
			}),
		))
	}
}

// HealthFunc reports whether a dependency is usable.
type HealthFunc func(ctx context.Context) error

// MetricsServer serves Prometheus metrics and a health probe on a separate port.
type MetricsServer struct {
	server *http.Server
	checks map[string]HealthFunc
}

// NewMetricsServer creates a metrics HTTP server serving the Prometheus handler
// at the given path on the given port. /health runs every registered check.
func NewMetricsServer(port int, path string, provider *Provider, opts ...ServerOption) *MetricsServer {
	ms := &MetricsServer{checks: make(map[string]HealthFunc)}

	r := mux.NewRouter()
	for _, opt := range opts {
		opt(r)
	}
	if provider != nil && provider.registry != nil {
		r.Handle(path, promhttp.HandlerFor(provider.registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	r.HandleFunc("/health", ms.handleHealth).Methods(http.MethodGet)

	ms.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return ms
}

// AddCheck registers a named health check. Must be called before Start.
func (ms *MetricsServer) AddCheck(name string, check HealthFunc) {
	ms.checks[name] = check
}

// Handler exposes the router, mainly for tests.
func (ms *MetricsServer) Handler() http.Handler {
	return ms.server.Handler
}

// Start begins serving metrics in a blocking call.
// Returns http.ErrServerClosed on graceful shutdown.
func (ms *MetricsServer) Start() error {
	slog.Info("Starting metrics server", "addr", ms.server.Addr)
	return ms.server.ListenAndServe()
}

// Shutdown gracefully stops the metrics server.
func (ms *MetricsServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (ms *MetricsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(ms.checks))}
	status := http.StatusOK
	for name, check := range ms.checks {
		if err := check(ctx); err != nil {
			resp.Checks[name] = err.Error()
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Warn("Failed to write health response", "error", err)
	}
}
