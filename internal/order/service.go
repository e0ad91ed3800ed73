// Package order runs the checkout saga. The order commit is the only step
// that must succeed; clearing the source cart afterwards is best effort and
// never fails a checkout.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/nikolayk812/cartsaga/internal/metrics"
	"github.com/nikolayk812/cartsaga/internal/port"
	"github.com/nikolayk812/cartsaga/internal/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/nikolayk812/cartsaga/internal/order"

type Config struct {
	ClearRetry   retry.Policy
	ClearTimeout time.Duration
	// EventTimeout bounds a single order event publish.
	EventTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		ClearRetry:   retry.Constant(3, 100*time.Millisecond),
		ClearTimeout: 2 * time.Second,
		EventTimeout: 5 * time.Second,
	}
}

type Service struct {
	repo    port.OrderRepository
	clearer port.CartClearer
	cfg     Config
	log     *slog.Logger

	idem    port.IdempotencyStore
	events  port.OrderEventPublisher
	metrics *metrics.Saga
	slow    *SlowMode
	tracer  trace.Tracer

	wg sync.WaitGroup
}

type Option func(*Service)

func WithIdempotency(store port.IdempotencyStore) Option {
	return func(s *Service) {
		s.idem = store
	}
}

func WithEvents(p port.OrderEventPublisher) Option {
	return func(s *Service) {
		s.events = p
	}
}

func WithMetrics(m *metrics.Saga) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithSlowMode(m *SlowMode) Option {
	return func(s *Service) {
		s.slow = m
	}
}

func NewService(repo port.OrderRepository, clearer port.CartClearer, cfg Config, log *slog.Logger, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repo is nil")
	}
	if clearer == nil {
		return nil, fmt.Errorf("clearer is nil")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		repo:    repo,
		clearer: clearer,
		cfg:     cfg,
		log:     log,
		slow:    NewSlowMode(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

type CheckoutInput struct {
	OwnerID        string
	Items          []domain.OrderItem
	IdempotencyKey string

	// SessionID and JourneyID only correlate log lines.
	SessionID string
	JourneyID string
}

type CheckoutResult struct {
	Order      domain.Order
	ItemCount  int
	OrderValue domain.Money
	// Replayed is set when the idempotency key had already produced Order.
	Replayed bool
}

func (in CheckoutInput) validate() error {
	if strings.TrimSpace(in.OwnerID) == "" {
		return fmt.Errorf("userId is empty: %w", domain.ErrInvalidCheckout)
	}
	if len(in.Items) == 0 {
		return fmt.Errorf("no items: %w", domain.ErrInvalidCheckout)
	}

	unit := in.Items[0].Price.Currency
	for i, it := range in.Items {
		switch {
		case it.Quantity < 1, it.Quantity > math.MaxInt32:
			return fmt.Errorf("item[%d] quantity %d: %w", i, it.Quantity, domain.ErrInvalidCheckout)
		case it.Price.IsNegative():
			return fmt.Errorf("item[%d] price is negative: %w", i, domain.ErrInvalidCheckout)
		case it.Price.Currency != unit:
			return fmt.Errorf("item[%d] currency %s differs from %s: %w", i, it.Price.Currency, unit, domain.ErrInvalidCheckout)
		}
	}

	return nil
}

// Checkout validates the snapshot, commits the order and then clears the
// source cart in the background.
func (s *Service) Checkout(ctx context.Context, in CheckoutInput) (CheckoutResult, error) {
	log := s.log.With(
		slog.String("user_id", in.OwnerID),
		slog.String("session_id", in.SessionID),
		slog.String("journey_id", in.JourneyID))

	if err := in.validate(); err != nil {
		s.metrics.Checkout(metrics.CheckoutInvalid)
		log.Warn("checkout rejected", slog.String("funnel_stage", "checkout_validation"), slog.Any("err", err))
		return CheckoutResult{}, err
	}

	reservedKey := ""
	if in.IdempotencyKey != "" && s.idem != nil {
		orderID, reserved, err := s.idem.Reserve(ctx, in.IdempotencyKey)
		switch {
		case err != nil:
			log.Warn("idempotency store unavailable, continuing without it", slog.Any("err", err))
		case reserved:
			reservedKey = in.IdempotencyKey
		case orderID == 0:
			return CheckoutResult{}, domain.ErrCheckoutInProgress
		default:
			return s.replay(ctx, orderID, log)
		}
	}

	items := append([]domain.OrderItem(nil), in.Items...)
	total := domain.OrderTotal(items, items[0].Price.Currency)

	order, err := s.repo.CreateOrder(ctx, domain.Order{
		OwnerID: in.OwnerID,
		Items:   items,
		Total:   total,
		Status:  domain.OrderStatusConfirmed,
	})
	if err != nil {
		s.metrics.Checkout(metrics.CheckoutFailed)
		if reservedKey != "" {
			if rerr := s.idem.Release(context.WithoutCancel(ctx), reservedKey); rerr != nil {
				log.Warn("idempotency key release failed", slog.Any("err", rerr))
			}
		}
		return CheckoutResult{}, fmt.Errorf("repo.CreateOrder: %w", err)
	}

	if reservedKey != "" {
		// The order is committed; a client hanging up now must not leave the
		// key pending.
		if err := s.idem.Complete(context.WithoutCancel(ctx), reservedKey, order.ID); err != nil {
			log.Warn("idempotency key completion failed", slog.Int64("order_id", order.ID), slog.Any("err", err))
		}
	}

	s.metrics.Checkout(metrics.CheckoutCreated)
	s.metrics.OrderValue(total.Amount.InexactFloat64())
	log.Info("order created",
		slog.String("funnel_stage", "order_created"),
		slog.Int64("order_id", order.ID),
		slog.Int("item_count", len(items)),
		slog.String("order_value", total.Amount.StringFixed(2)))

	s.afterCommit(ctx, order)

	return CheckoutResult{
		Order:      order,
		ItemCount:  len(order.Items),
		OrderValue: order.Total,
	}, nil
}

func (s *Service) replay(ctx context.Context, orderID int64, log *slog.Logger) (CheckoutResult, error) {
	order, err := s.repo.GetOrder(ctx, orderID)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("repo.GetOrder: %w", err)
	}

	s.metrics.Checkout(metrics.CheckoutReplayed)
	log.Info("checkout replayed", slog.Int64("order_id", order.ID))

	return CheckoutResult{
		Order:      order,
		ItemCount:  len(order.Items),
		OrderValue: order.Total,
		Replayed:   true,
	}, nil
}

// afterCommit starts the post-commit steps. They outlive the request, so they
// run on a context that is never cancelled with it.
func (s *Service) afterCommit(ctx context.Context, order domain.Order) {
	bg := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clearCart(bg, order)
	}()

	if s.events != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.publishConfirmed(bg, order)
		}()
	}
}

func (s *Service) clearCart(ctx context.Context, order domain.Order) {
	ctx, span := s.tracer.Start(ctx, "order.clear_cart", trace.WithAttributes(
		attribute.String("user.id", order.OwnerID),
		attribute.Int64("order.id", order.ID)))
	defer span.End()

	log := s.log.With(slog.String("user_id", order.OwnerID), slog.Int64("order_id", order.ID))

	attempts, err := retry.Do(ctx, s.cfg.ClearRetry, func(ctx context.Context, _ int) error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.ClearTimeout)
		defer cancel()

		err := s.clearer.ClearCart(attemptCtx, order.OwnerID)
		if err == nil {
			return nil
		}
		if !isRetryableClear(err) {
			return retry.Permanent(err)
		}
		return err
	}, func(err error, attempt int, next time.Duration) {
		log.Warn("cart clear failed, retrying",
			slog.String("funnel_stage", "cart_clear"),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", next),
			slog.Any("err", err))
	})

	span.SetAttributes(attribute.Int("attempts", attempts))

	switch {
	case err == nil:
		s.metrics.CartClear(metrics.CartClearDone, attempts)
		log.Info("cart cleared after checkout", slog.String("funnel_stage", "cart_clear"), slog.Int("attempt", attempts))
	case errors.Is(err, domain.ErrCartNotFound):
		s.metrics.CartClear(metrics.CartClearNotFound, attempts)
		log.Info("no cart to clear after checkout", slog.String("funnel_stage", "cart_clear"))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "cart clear failed")
		s.metrics.CartClear(metrics.CartClearFailed, attempts)
		log.Error("cart clear gave up, order stands",
			slog.String("funnel_stage", "cart_clear"),
			slog.Int("attempt", attempts),
			slog.Any("err", err))
	}
}

// isRetryableClear reports whether another clear attempt could succeed.
// Version conflicts, timeouts and transport errors qualify; a missing cart or
// a rejected request does not.
func isRetryableClear(err error) bool {
	return !errors.Is(err, domain.ErrCartNotFound) && !errors.Is(err, domain.ErrInvalidInput)
}

func (s *Service) publishConfirmed(ctx context.Context, order domain.Order) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.EventTimeout)
	defer cancel()

	err := s.events.PublishOrderConfirmed(ctx, order)
	s.metrics.EventPublished(err == nil)
	if err != nil {
		s.log.Warn("order event publish failed", slog.Int64("order_id", order.ID), slog.Any("err", err))
	}
}

// Wait blocks until every background step started by Checkout has finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	if id < 1 {
		return domain.Order{}, fmt.Errorf("order id %d: %w", id, domain.ErrInvalidInput)
	}

	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("repo.GetOrder: %w", err)
	}
	return order, nil
}

func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]domain.Order, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("userId is empty: %w", domain.ErrInvalidInput)
	}

	orders, err := s.repo.ListOrdersByOwner(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("repo.ListOrdersByOwner: %w", err)
	}
	return orders, nil
}

// ListAll returns every order, after the slow-mode delay if one is set.
func (s *Service) ListAll(ctx context.Context) ([]domain.Order, error) {
	if err := s.slow.Wait(ctx); err != nil {
		return nil, fmt.Errorf("slow mode: %w", err)
	}

	orders, err := s.repo.ListOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("repo.ListOrders: %w", err)
	}
	return orders, nil
}

// UpdateStatus moves an order along its lifecycle. The write only applies if
// the status is still the one the transition was checked against.
func (s *Service) UpdateStatus(ctx context.Context, id int64, next domain.OrderStatus) (domain.Order, error) {
	order, err := s.repo.GetOrder(ctx, id)
	if err != nil {
		return domain.Order{}, fmt.Errorf("repo.GetOrder: %w", err)
	}

	if !order.Status.CanTransitionTo(next) {
		return domain.Order{}, &domain.InvalidTransitionError{From: order.Status, To: next}
	}

	updated, err := s.repo.UpdateOrderStatus(ctx, id, order.Status, next)
	if err != nil {
		return domain.Order{}, fmt.Errorf("repo.UpdateOrderStatus: %w", err)
	}

	s.metrics.StatusChanged(string(next))
	s.log.Info("order status changed",
		slog.Int64("order_id", id),
		slog.String("from", string(order.Status)),
		slog.String("to", string(next)))

	return updated, nil
}

func (s *Service) Revenue(ctx context.Context) (domain.Revenue, error) {
	rev, err := s.repo.Revenue(ctx)
	if err != nil {
		return domain.Revenue{}, fmt.Errorf("repo.Revenue: %w", err)
	}
	return rev, nil
}

func (s *Service) SlowMode() *SlowMode {
	return s.slow
}
