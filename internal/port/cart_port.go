package port

import (
	"context"

	"github.com/nikolayk812/cartsaga/internal/domain"
)

type CartRepository interface {
	// GetCart returns domain.ErrCartNotFound when the owner has no cart.
	GetCart(ctx context.Context, ownerID string) (domain.Cart, error)
	// CreateCart returns domain.ErrCartExists when another caller won the race.
	CreateCart(ctx context.Context, ownerID string) (domain.Cart, error)
	// SaveCart persists cart.Items as the new line set if the stored version
	// still equals cart.Version, otherwise it returns domain.ErrVersionConflict.
	SaveCart(ctx context.Context, cart domain.Cart) (domain.Cart, error)
}

// CartClearer empties a user's cart on behalf of the checkout saga.
type CartClearer interface {
	ClearCart(ctx context.Context, ownerID string) error
}
