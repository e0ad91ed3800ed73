package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/cartsaga/internal/cartclient"
	"github.com/nikolayk812/cartsaga/internal/config"
	"github.com/nikolayk812/cartsaga/internal/events"
	"github.com/nikolayk812/cartsaga/internal/httpapi"
	"github.com/nikolayk812/cartsaga/internal/idempotency"
	"github.com/nikolayk812/cartsaga/internal/logger"
	"github.com/nikolayk812/cartsaga/internal/metrics"
	"github.com/nikolayk812/cartsaga/internal/order"
	"github.com/nikolayk812/cartsaga/internal/repository"
	"github.com/nikolayk812/cartsaga/internal/server"
	"github.com/nikolayk812/cartsaga/internal/shutdown"
	"github.com/nikolayk812/cartsaga/internal/telemetry"
)

const serviceName = "order-service"

func main() {
	cfg := config.LoadOrder()
	log := logger.New(logger.Options{Service: serviceName, Env: cfg.Env, Level: cfg.LogLevel, AddSource: true})

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	if err := run(ctx, cfg, log); err != nil {
		log.Error("service failed", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("bye")
}

func run(ctx context.Context, cfg config.Order, log *slog.Logger) error {
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

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("pgxpool.New: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("pool.Ping: %w", err)
	}

	repo, err := repository.NewOrder(pool)
	if err != nil {
		return fmt.Errorf("repository.NewOrder: %w", err)
	}

	carts, err := cartclient.New(cfg.CartServiceURL, nil)
	if err != nil {
		return fmt.Errorf("cartclient.New: %w", err)
	}

	reg := server.NewRegistry()
	opts := []order.Option{order.WithMetrics(metrics.NewSaga(reg))}

	if cfg.RedisURL != "" {
		rdb, err := idempotency.Open(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("idempotency.Open: %w", err)
		}
		defer rdb.Close()

		opts = append(opts, order.WithIdempotency(idempotency.NewStore(rdb, idempotency.DefaultTTL)))
		log.Info("checkout idempotency enabled")
	}

	if kc := events.NewClient(cfg.KafkaBrokers); kc.Enabled() {
		writer := kc.NewWriter(cfg.KafkaTopic)
		defer func() {
			if err := writer.Close(); err != nil {
				log.Warn("kafka writer close failed", slog.Any("err", err))
			}
		}()

		opts = append(opts, order.WithEvents(events.NewOrderPublisher(writer)))
		log.Info("order events enabled", slog.Any("brokers", kc.Brokers), slog.String("topic", cfg.KafkaTopic))
	}

	orderCfg := order.DefaultConfig()
	orderCfg.ClearTimeout = cfg.CartClearTimeout

	svc, err := order.NewService(repo, carts, orderCfg, log, opts...)
	if err != nil {
		return fmt.Errorf("order.NewService: %w", err)
	}
	// in-flight cart clears and event publishes finish before the pools close
	defer svc.Wait()

	h := server.Handler(serviceName, reg, func(mux *http.ServeMux) {
		httpapi.NewOrderHandler(svc, log).Register(mux)
	})

	return shutdown.ServeHTTP(ctx, server.New(cfg.HTTPPort, h), shutdown.DefaultTimeout, log)
}
