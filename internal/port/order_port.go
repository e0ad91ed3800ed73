package port

import (
	"context"

	"github.com/nikolayk812/cartsaga/internal/domain"
)

type OrderRepository interface {
	CreateOrder(ctx context.Context, order domain.Order) (domain.Order, error)
	GetOrder(ctx context.Context, id int64) (domain.Order, error)
	ListOrders(ctx context.Context) ([]domain.Order, error)
	ListOrdersByOwner(ctx context.Context, ownerID string) ([]domain.Order, error)
	// UpdateOrderStatus moves the order from -> to, returning
	// domain.ErrVersionConflict if its status is no longer from.
	UpdateOrderStatus(ctx context.Context, id int64, from, to domain.OrderStatus) (domain.Order, error)
	Revenue(ctx context.Context) (domain.Revenue, error)
}

// IdempotencyStore remembers which order a checkout idempotency key produced.
type IdempotencyStore interface {
	// Reserve claims key. When the key is already taken, reserved is false and
	// orderID is the order it produced, or 0 while that checkout is in flight.
	Reserve(ctx context.Context, key string) (orderID int64, reserved bool, err error)
	Complete(ctx context.Context, key string, orderID int64) error
	Release(ctx context.Context, key string) error
}

type OrderEventPublisher interface {
	PublishOrderConfirmed(ctx context.Context, order domain.Order) error
}
