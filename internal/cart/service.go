// Package cart mutates carts under optimistic concurrency: every write is a
// read, a pure computation and a version-checked save, restarted from a fresh
// read when another writer got there first.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/nikolayk812/cartsaga/internal/metrics"
	"github.com/nikolayk812/cartsaga/internal/port"
	"github.com/nikolayk812/cartsaga/internal/retry"
	"github.com/shopspring/decimal"
)

const (
	opAddItem = "add_item"
	opClear   = "clear_cart"
)

type Service struct {
	repo    port.CartRepository
	cfg     Config
	log     *slog.Logger
	metrics *metrics.Cart
}

type Option func(*Service)

func WithMetrics(m *metrics.Cart) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(repo port.CartRepository, cfg Config, log *slog.Logger, opts ...Option) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("repo is nil")
	}
	if log == nil {
		log = slog.Default()
	}

	s := &Service{
		repo: repo,
		cfg:  cfg,
		log:  log,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

type AddItemInput struct {
	ProductID   int64
	ProductName string
	Price       domain.Money
	Quantity    int
}

func (in AddItemInput) validate() error {
	switch {
	case in.ProductID <= 0:
		return fmt.Errorf("productId must be positive: %w", domain.ErrInvalidInput)
	case strings.TrimSpace(in.ProductName) == "":
		return fmt.Errorf("productName is empty: %w", domain.ErrInvalidInput)
	case in.Quantity < 1:
		return fmt.Errorf("quantity must be at least 1: %w", domain.ErrInvalidInput)
	case in.Quantity > math.MaxInt32:
		return fmt.Errorf("quantity %d is too large: %w", in.Quantity, domain.ErrInvalidInput)
	case in.Price.IsNegative():
		return fmt.Errorf("price must not be negative: %w", domain.ErrInvalidInput)
	}
	return nil
}

// GetOrCreate returns the owner's cart, creating an empty one on first use.
// Callers racing to create the same cart all end up with the single winner.
func (s *Service) GetOrCreate(ctx context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, fmt.Errorf("userId is empty: %w", domain.ErrInvalidInput)
	}

	cart, err := s.repo.GetCart(ctx, ownerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, domain.ErrCartNotFound) {
		return domain.Cart{}, fmt.Errorf("repo.GetCart: %w", err)
	}

	cart, err = s.repo.CreateCart(ctx, ownerID)
	if errors.Is(err, domain.ErrCartExists) {
		cart, err = s.repo.GetCart(ctx, ownerID)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("repo.GetCart after create race: %w", err)
		}
		return cart, nil
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("repo.CreateCart: %w", err)
	}

	s.log.Info("cart created", slog.String("user_id", ownerID))

	return cart, nil
}

func (s *Service) View(ctx context.Context, ownerID string) (domain.Cart, error) {
	return s.GetOrCreate(ctx, ownerID)
}

// AddItem merges in into the owner's cart: an existing line for the product
// gets its quantity raised, otherwise a new line is appended.
func (s *Service) AddItem(ctx context.Context, ownerID string, in AddItemInput) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, fmt.Errorf("userId is empty: %w", domain.ErrInvalidInput)
	}
	if err := in.validate(); err != nil {
		return domain.Cart{}, err
	}

	var saved domain.Cart

	attempts, err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context, attempt int) error {
		cart, err := s.GetOrCreate(ctx, ownerID)
		if err != nil {
			return retry.Permanent(err)
		}

		if err := s.checkLimit(cart, in); err != nil {
			return retry.Permanent(err)
		}

		if s.cfg.FaultProduct != "" && strings.EqualFold(s.cfg.FaultProduct, in.ProductName) {
			return retry.Permanent(fmt.Errorf("adding %s: %w", in.ProductName, domain.ErrInjectedFault))
		}

		next, err := mergeItem(cart, in)
		if err != nil {
			return retry.Permanent(err)
		}

		saved, err = s.repo.SaveCart(ctx, next)
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		if err != nil {
			return retry.Permanent(fmt.Errorf("repo.SaveCart: %w", err))
		}

		return nil
	}, s.onConflict(opAddItem, ownerID))
	if err != nil {
		return domain.Cart{}, s.mutationError(opAddItem, ownerID, attempts, err)
	}

	s.metrics.ItemsAdded(in.ProductName, in.Quantity)
	s.log.Info("item added to cart",
		slog.String("funnel_stage", "add_to_cart"),
		slog.String("user_id", ownerID),
		slog.Int64("product_id", in.ProductID),
		slog.Int("quantity", in.Quantity),
		slog.Int("attempt", attempts))

	return saved, nil
}

// RemoveItem drops the line with lineID. A missing line leaves the cart as it
// is. A concurrent write is reported as domain.ErrVersionConflict rather than
// retried, so the caller decides against the latest state.
func (s *Service) RemoveItem(ctx context.Context, ownerID string, lineID int64) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, fmt.Errorf("userId is empty: %w", domain.ErrInvalidInput)
	}

	cart, err := s.repo.GetCart(ctx, ownerID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("repo.GetCart: %w", err)
	}

	idx, ok := cart.ItemByID(lineID)
	if !ok {
		return cart, nil
	}

	next := cart.Clone()
	next.Items = append(next.Items[:idx], next.Items[idx+1:]...)

	saved, err := s.repo.SaveCart(ctx, next)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("repo.SaveCart: %w", err)
	}

	s.log.Info("item removed from cart",
		slog.String("user_id", ownerID),
		slog.Int64("item_id", lineID))

	return saved, nil
}

// Clear empties the owner's cart. The cart must already exist.
func (s *Service) Clear(ctx context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, fmt.Errorf("userId is empty: %w", domain.ErrInvalidInput)
	}

	var cleared domain.Cart

	attempts, err := retry.Do(ctx, s.cfg.Retry, func(ctx context.Context, _ int) error {
		cart, err := s.repo.GetCart(ctx, ownerID)
		if err != nil {
			return retry.Permanent(fmt.Errorf("repo.GetCart: %w", err))
		}

		if len(cart.Items) == 0 {
			cleared = cart
			return nil
		}

		next := cart.Clone()
		next.Items = nil

		cleared, err = s.repo.SaveCart(ctx, next)
		if errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		if err != nil {
			return retry.Permanent(fmt.Errorf("repo.SaveCart: %w", err))
		}

		return nil
	}, s.onConflict(opClear, ownerID))
	if err != nil {
		return domain.Cart{}, s.mutationError(opClear, ownerID, attempts, err)
	}

	s.log.Info("cart cleared", slog.String("user_id", ownerID), slog.Int("attempt", attempts))

	return cleared, nil
}

// ClearCart satisfies port.CartClearer for in-process wiring.
func (s *Service) ClearCart(ctx context.Context, ownerID string) error {
	_, err := s.Clear(ctx, ownerID)
	return err
}

type CartSummary struct {
	ItemCount     int
	TotalQuantity int
	TotalValue    decimal.Decimal
}

// Summary counts lines, not units, in ItemCount.
func Summary(cart domain.Cart) CartSummary {
	qty := 0
	for _, it := range cart.Items {
		qty += it.Quantity
	}

	return CartSummary{
		ItemCount:     len(cart.Items),
		TotalQuantity: qty,
		TotalValue:    cart.TotalValue(),
	}
}

// RecordView marks the cart page as viewed, creating the cart if needed.
func (s *Service) RecordView(ctx context.Context, ownerID string) (domain.Cart, CartSummary, error) {
	cart, err := s.GetOrCreate(ctx, ownerID)
	if err != nil {
		return domain.Cart{}, CartSummary{}, err
	}

	sum := Summary(cart)
	s.metrics.FunnelStage("cart_view")
	s.log.Info("cart viewed",
		slog.String("funnel_stage", "cart_view"),
		slog.String("user_id", ownerID),
		slog.Int("item_count", sum.ItemCount),
		slog.String("cart_value", sum.TotalValue.StringFixed(2)))

	return cart, sum, nil
}

// InitiateCheckout marks the start of checkout. A missing or empty cart
// cannot be checked out.
func (s *Service) InitiateCheckout(ctx context.Context, ownerID string) (domain.Cart, CartSummary, error) {
	if ownerID == "" {
		return domain.Cart{}, CartSummary{}, fmt.Errorf("userId is empty: %w", domain.ErrInvalidInput)
	}

	cart, err := s.repo.GetCart(ctx, ownerID)
	if errors.Is(err, domain.ErrCartNotFound) {
		return domain.Cart{}, CartSummary{}, fmt.Errorf("no cart for %s: %w", ownerID, domain.ErrInvalidCheckout)
	}
	if err != nil {
		return domain.Cart{}, CartSummary{}, fmt.Errorf("repo.GetCart: %w", err)
	}
	if len(cart.Items) == 0 {
		return domain.Cart{}, CartSummary{}, fmt.Errorf("cart is empty: %w", domain.ErrInvalidCheckout)
	}

	sum := Summary(cart)
	s.metrics.FunnelStage("checkout_initiated")
	s.log.Info("checkout initiated",
		slog.String("funnel_stage", "checkout_initiated"),
		slog.String("user_id", ownerID),
		slog.Int("item_count", sum.ItemCount),
		slog.String("cart_value", sum.TotalValue.StringFixed(2)))

	return cart, sum, nil
}

func (s *Service) checkLimit(cart domain.Cart, in AddItemInput) error {
	limit, ok := s.cfg.limitFor(in.ProductName)
	if !ok {
		return nil
	}

	current := cart.QuantityByName(limit.ProductName)
	if current+in.Quantity <= limit.Max {
		return nil
	}

	s.metrics.BusinessRuleViolated(limit.ProductName)

	return &domain.BusinessRuleViolationError{
		ProductName: limit.ProductName,
		Limit:       limit.Max,
		Current:     current,
		Attempted:   in.Quantity,
	}
}

func mergeItem(cart domain.Cart, in AddItemInput) (domain.Cart, error) {
	next := cart.Clone()

	if idx, ok := next.ItemByProduct(in.ProductID); ok {
		if next.Items[idx].Quantity > math.MaxInt32-in.Quantity {
			return domain.Cart{}, fmt.Errorf("product %d quantity would exceed %d: %w",
				in.ProductID, math.MaxInt32, domain.ErrInvalidInput)
		}
		next.Items[idx].Quantity += in.Quantity
		return next, nil
	}

	next.Items = append(next.Items, domain.CartItem{
		ProductID:   in.ProductID,
		ProductName: in.ProductName,
		Price:       in.Price,
		Quantity:    in.Quantity,
	})

	return next, nil
}

func (s *Service) onConflict(op, ownerID string) retry.Notify {
	return func(err error, attempt int, next time.Duration) {
		s.metrics.ConflictRetried(op)
		s.log.Warn("cart write lost version race, retrying",
			slog.String("op", op),
			slog.String("user_id", ownerID),
			slog.Int("attempt", attempt),
			slog.Duration("backoff", next),
			slog.Any("err", err))
	}
}

// mutationError turns a version conflict that survived every attempt into
// a ConcurrencyExhaustedError.
func (s *Service) mutationError(op, ownerID string, attempts int, err error) error {
	if !errors.Is(err, domain.ErrVersionConflict) {
		return err
	}

	s.metrics.ConcurrencyExhausted(op)
	s.log.Error("cart write gave up",
		slog.String("op", op),
		slog.String("user_id", ownerID),
		slog.Int("attempt", attempts))

	return &domain.ConcurrencyExhaustedError{Op: op, Attempts: attempts}
}
