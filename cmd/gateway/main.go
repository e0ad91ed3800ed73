package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/nikolayk812/cartsaga/internal/config"
	"github.com/nikolayk812/cartsaga/internal/gateway"
	"github.com/nikolayk812/cartsaga/internal/logger"
	"github.com/nikolayk812/cartsaga/internal/server"
	"github.com/nikolayk812/cartsaga/internal/shutdown"
	"github.com/nikolayk812/cartsaga/internal/telemetry"
)

const serviceName = "gateway"

func main() {
	cfg := config.LoadGateway()
	log := logger.New(logger.Options{Service: serviceName, Env: cfg.Env, Level: cfg.LogLevel, AddSource: true})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service failed", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

func run(ctx context.Context, cfg config.Gateway, log *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: serviceName,
		Exporter:    cfg.OTelExporter,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		return fmt.Errorf("telemetry.Setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	gw, err := gateway.New(gateway.Upstreams{
		Catalog: cfg.CatalogURL,
		Cart:    cfg.CartURL,
		Order:   cfg.OrderURL,
	}, telemetry.Transport(nil), log)
	if err != nil {
		return fmt.Errorf("gateway.New: %w", err)
	}

	h := server.Handler(serviceName, server.NewRegistry(), gw.Register)

	return shutdown.ServeHTTP(ctx, server.New(cfg.HTTPPort, h), shutdown.DefaultTimeout, log)
}
