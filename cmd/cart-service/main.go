package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/cartsaga/internal/cart"
	"github.com/nikolayk812/cartsaga/internal/config"
	"github.com/nikolayk812/cartsaga/internal/httpapi"
	"github.com/nikolayk812/cartsaga/internal/logger"
	"github.com/nikolayk812/cartsaga/internal/metrics"
	"github.com/nikolayk812/cartsaga/internal/port"
	"github.com/nikolayk812/cartsaga/internal/repository"
	"github.com/nikolayk812/cartsaga/internal/server"
	"github.com/nikolayk812/cartsaga/internal/shutdown"
	"github.com/nikolayk812/cartsaga/internal/telemetry"
)

const serviceName = "cart-service"

func main() {
	cfg := config.LoadCart()
	log := logger.New(logger.Options{Service: serviceName, Env: cfg.Env, Level: cfg.LogLevel, AddSource: true})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service failed", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

func run(ctx context.Context, cfg config.Cart, log *slog.Logger) error {
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: serviceName,
		Exporter:    cfg.OTelExporter,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		return fmt.Errorf("telemetry.Setup: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", slog.Any("err", err))
		}
	}()

	repo, closeRepo, err := openRepo(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeRepo()

	limits, err := cart.ParseQuantityLimits(cfg.QuantityLimits)
	if err != nil {
		return fmt.Errorf("cart.ParseQuantityLimits: %w", err)
	}

	cartCfg := cart.DefaultConfig()
	cartCfg.Limits = limits
	cartCfg.FaultProduct = cfg.FaultProduct

	reg := server.NewRegistry()

	svc, err := cart.NewService(repo, cartCfg, log, cart.WithMetrics(metrics.NewCart(reg)))
	if err != nil {
		return fmt.Errorf("cart.NewService: %w", err)
	}

	h := server.Handler(serviceName, reg, func(mux *http.ServeMux) {
		httpapi.NewCartHandler(svc, log).Register(mux)
	})

	log.Info("cart store ready",
		slog.String("storage", cfg.Storage),
		slog.Any("limits", limits),
		slog.String("fault_product", cfg.FaultProduct))

	return shutdown.ServeHTTP(ctx, server.New(cfg.HTTPPort, h), shutdown.DefaultTimeout, log)
}

func openRepo(ctx context.Context, cfg config.Cart) (port.CartRepository, func(), error) {
	switch cfg.Storage {
	case "memory":
		return repository.NewCartInMemory(), func() {}, nil
	case "postgres":
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("pgxpool.New: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("pool.Ping: %w", err)
		}

		repo, err := repository.NewCart(pool)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("repository.NewCart: %w", err)
		}
		return repo, pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown CART_STORAGE %q, use postgres or memory", cfg.Storage)
	}
}
