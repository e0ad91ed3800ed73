package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nikolayk812/cartsaga/internal/db"
	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/nikolayk812/cartsaga/internal/port"
	"golang.org/x/text/currency"
)

type cartRepository struct {
	q    *db.Queries
	pool *pgxpool.Pool
}

func NewCart(pool *pgxpool.Pool) (port.CartRepository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}

	return &cartRepository{
		q:    db.New(pool),
		pool: pool,
	}, nil
}

func NewCartWithTx(tx pgx.Tx) port.CartRepository {
	return &cartRepository{
		q:    db.New(tx),
		pool: nil, // use provided transaction instead
	}
}

func (r *cartRepository) GetCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, fmt.Errorf("ownerID is empty")
	}

	return withTx(ctx, r.pool, r.q, readSnapshot, func(q *db.Queries) (domain.Cart, error) {
		dbCart, err := q.GetCart(ctx, ownerID)
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Cart{}, domain.ErrCartNotFound
		}
		if err != nil {
			return domain.Cart{}, fmt.Errorf("q.GetCart: %w", err)
		}

		dbItems, err := q.ListCartItems(ctx, ownerID)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("q.ListCartItems: %w", err)
		}

		items, err := mapCartItemsToDomain(dbItems)
		if err != nil {
			return domain.Cart{}, fmt.Errorf("mapCartItemsToDomain: %w", err)
		}

		return mapCartToDomain(dbCart, items), nil
	})
}

func (r *cartRepository) CreateCart(ctx context.Context, ownerID string) (domain.Cart, error) {
	if ownerID == "" {
		return domain.Cart{}, fmt.Errorf("ownerID is empty")
	}

	dbCart, err := r.q.CreateCart(ctx, ownerID)
	if isUniqueViolation(err) {
		return domain.Cart{}, domain.ErrCartExists
	}
	if err != nil {
		return domain.Cart{}, fmt.Errorf("q.CreateCart: %w", err)
	}

	return mapCartToDomain(dbCart, nil), nil
}

// SaveCart claims the next version first; the UPDATE row lock serializes
// competing writers and a stale cart.Version matches no row.
func (r *cartRepository) SaveCart(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if cart.OwnerID == "" {
		return domain.Cart{}, fmt.Errorf("ownerID is empty")
	}
	for _, it := range cart.Items {
		if it.Quantity < 1 {
			return domain.Cart{}, fmt.Errorf("product[%d] quantity %d: %w", it.ProductID, it.Quantity, domain.ErrInvalidInput)
		}
	}

	return withTx(ctx, r.pool, r.q, pgx.TxOptions{}, func(q *db.Queries) (domain.Cart, error) {
		dbCart, err := q.BumpCartVersion(ctx, db.BumpCartVersionParams{
			OwnerID: cart.OwnerID,
			Version: cart.Version,
		})
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Cart{}, domain.ErrVersionConflict
		}
		if err != nil {
			return domain.Cart{}, fmt.Errorf("q.BumpCartVersion: %w", err)
		}

		keepIDs := make([]int64, 0, len(cart.Items))
		for _, it := range cart.Items {
			if it.ID != 0 {
				keepIDs = append(keepIDs, it.ID)
			}
		}

		if _, err := q.DeleteCartItemsExcept(ctx, db.DeleteCartItemsExceptParams{
			OwnerID: cart.OwnerID,
			KeepIds: keepIDs,
		}); err != nil {
			return domain.Cart{}, fmt.Errorf("q.DeleteCartItemsExcept: %w", err)
		}

		items := make([]domain.CartItem, 0, len(cart.Items))
		for _, it := range cart.Items {
			if it.ID != 0 {
				if err := q.UpdateCartItemQuantity(ctx, db.UpdateCartItemQuantityParams{
					OwnerID:  cart.OwnerID,
					ID:       it.ID,
					Quantity: int32(it.Quantity),
				}); err != nil {
					return domain.Cart{}, fmt.Errorf("q.UpdateCartItemQuantity: %w", err)
				}
				items = append(items, it)
				continue
			}

			row, err := q.InsertCartItem(ctx, db.InsertCartItemParams{
				OwnerID:       cart.OwnerID,
				ProductID:     it.ProductID,
				ProductName:   it.ProductName,
				PriceAmount:   it.Price.Amount,
				PriceCurrency: it.Price.Currency.String(),
				Quantity:      int32(it.Quantity),
			})
			if err != nil {
				return domain.Cart{}, fmt.Errorf("q.InsertCartItem: %w", err)
			}

			it.ID = row.ID
			it.CreatedAt = row.CreatedAt
			items = append(items, it)
		}

		return mapCartToDomain(dbCart, items), nil
	})
}

func mapCartToDomain(c db.Cart, items []domain.CartItem) domain.Cart {
	return domain.Cart{
		OwnerID:   c.OwnerID,
		Items:     items,
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func mapCartItemToDomain(row db.CartItem) (domain.CartItem, error) {
	parsedCurrency, err := currency.ParseISO(row.PriceCurrency)
	if err != nil {
		return domain.CartItem{}, fmt.Errorf("currency[%s] is not valid: %w", row.PriceCurrency, err)
	}

	return domain.CartItem{
		ID:          row.ID,
		ProductID:   row.ProductID,
		ProductName: row.ProductName,
		Price:       domain.Money{Amount: row.PriceAmount, Currency: parsedCurrency},
		Quantity:    int(row.Quantity),
		CreatedAt:   row.CreatedAt,
	}, nil
}

func mapCartItemsToDomain(rows []db.CartItem) ([]domain.CartItem, error) {
	var items []domain.CartItem

	for _, row := range rows {
		item, err := mapCartItemToDomain(row)
		if err != nil {
			return nil, fmt.Errorf("mapCartItemToDomain: %w", err)
		}

		items = append(items, item)
	}

	return items, nil
}
