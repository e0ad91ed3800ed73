package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/nikolayk812/cartsaga/internal/config"
	"github.com/nikolayk812/cartsaga/internal/loadgen"
	"github.com/nikolayk812/cartsaga/internal/logger"
	"github.com/nikolayk812/cartsaga/internal/server"
	"github.com/nikolayk812/cartsaga/internal/shutdown"
	"github.com/nikolayk812/cartsaga/internal/telemetry"
	"golang.org/x/sync/errgroup"
)

const serviceName = "loadgen"

func main() {
	cfg := config.LoadLoadGen()
	log := logger.New(logger.Options{Service: serviceName, Env: cfg.Env, Level: cfg.LogLevel})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service failed", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

func run(ctx context.Context, cfg config.LoadGen, log *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: serviceName,
		Exporter:    cfg.OTelExporter,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		return fmt.Errorf("telemetry.Setup: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	intensity, err := loadgen.ParseIntensity(cfg.Intensity)
	if err != nil {
		return fmt.Errorf("loadgen.ParseIntensity: %w", err)
	}

	genCfg := loadgen.DefaultConfig()
	genCfg.GatewayURL = cfg.GatewayURL
	genCfg.Users = cfg.Users
	genCfg.Intensity = intensity
	genCfg.Enabled = cfg.Enabled

	gen, err := loadgen.New(genCfg, &http.Client{Transport: telemetry.Transport(nil)}, log)
	if err != nil {
		return fmt.Errorf("loadgen.New: %w", err)
	}

	h := server.Handler(serviceName, server.NewRegistry(), gen.Register)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return gen.Run(ctx)
	})
	g.Go(func() error {
		return shutdown.ServeHTTP(ctx, server.New(cfg.HTTPPort, h), shutdown.DefaultTimeout, log)
	})

	return g.Wait()
}
