package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/nikolayk812/cartsaga/internal/catalog"
	"github.com/nikolayk812/cartsaga/internal/config"
	"github.com/nikolayk812/cartsaga/internal/httpapi"
	"github.com/nikolayk812/cartsaga/internal/logger"
	"github.com/nikolayk812/cartsaga/internal/server"
	"github.com/nikolayk812/cartsaga/internal/shutdown"
	"github.com/nikolayk812/cartsaga/internal/telemetry"
)

const serviceName = "catalog-service"

func main() {
	cfg := config.LoadCatalog()
	log := logger.New(logger.Options{Service: serviceName, Env: cfg.Env, Level: cfg.LogLevel, AddSource: true})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service failed", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

func run(ctx context.Context, cfg config.App, log *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: serviceName,
		Exporter:    cfg.OTelExporter,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		return fmt.Errorf("telemetry.Setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	store := catalog.NewSeededStore()

	h := server.Handler(serviceName, server.NewRegistry(), func(mux *http.ServeMux) {
		httpapi.NewCatalogHandler(store, log).Register(mux)
	})

	return shutdown.ServeHTTP(ctx, server.New(cfg.HTTPPort, h), shutdown.DefaultTimeout, log)
}
