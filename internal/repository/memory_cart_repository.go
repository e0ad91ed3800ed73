package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/nikolayk812/cartsaga/internal/port"
)

// memoryCartRepository keeps carts in process memory. Every read and write
// goes through a deep copy so callers never share slices with the store.
type memoryCartRepository struct {
	mu     sync.Mutex
	carts  map[string]domain.Cart
	lineID int64
	now    func() time.Time
}

func NewCartInMemory() port.CartRepository {
	return &memoryCartRepository{
		carts: make(map[string]domain.Cart),
		now:   time.Now,
	}
}

func (r *memoryCartRepository) GetCart(_ context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, fmt.Errorf("ownerID is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.carts[ownerID]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}

	return cart.Clone(), nil
}

func (r *memoryCartRepository) CreateCart(_ context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, fmt.Errorf("ownerID is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.carts[ownerID]; ok {
		return domain.Cart{}, domain.ErrCartExists
	}

	now := r.now().UTC()
	cart := domain.Cart{
		OwnerID:   ownerID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	r.carts[ownerID] = cart

	return cart.Clone(), nil
}

func (r *memoryCartRepository) SaveCart(_ context.Context, cart domain.Cart) (domain.Cart, error) {
	if cart.OwnerID == "" {
		return domain.Cart{}, fmt.Errorf("ownerID is empty")
	}
	for _, it := range cart.Items {
		if it.Quantity < 1 {
			return domain.Cart{}, fmt.Errorf("product[%d] quantity %d: %w", it.ProductID, it.Quantity, domain.ErrInvalidInput)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.carts[cart.OwnerID]
	if !ok || stored.Version != cart.Version {
		return domain.Cart{}, domain.ErrVersionConflict
	}

	now := r.now().UTC()
	saved := cart.Clone()
	for i := range saved.Items {
		if saved.Items[i].ID == 0 {
			r.lineID++
			saved.Items[i].ID = r.lineID
			saved.Items[i].CreatedAt = now
		}
	}
	saved.Version = stored.Version + 1
	saved.CreatedAt = stored.CreatedAt
	saved.UpdatedAt = now

	r.carts[cart.OwnerID] = saved

	return saved.Clone(), nil
}
