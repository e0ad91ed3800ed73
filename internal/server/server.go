// Package server assembles the HTTP stack every service shares.
package server

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nikolayk812/cartsaga/internal/httpapi"
	"github.com/nikolayk812/cartsaga/internal/metrics"
	"github.com/nikolayk812/cartsaga/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler mounts the routes added by register next to /health and /metrics,
// then wraps the mux with request metrics and tracing.
func Handler(service string, reg *prometheus.Registry, register func(mux *http.ServeMux)) http.Handler {
	mux := http.NewServeMux()
	register(mux)
	mux.Handle("GET /health", httpapi.Health(service))
	mux.Handle("GET /metrics", metrics.Handler(reg))

	m := metrics.NewServerMetrics(reg, strings.ReplaceAll(service, "-", "_"))

	return telemetry.Middleware(service, m.Middleware(mux))
}

func New(port int, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
