// Package catalog holds the read-only product list shown to shoppers.
package catalog

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/shopspring/decimal"
)

type Product struct {
	ID          int64
	Name        string
	Description string
	Price       domain.Money
	Stock       int
}

type Store struct {
	mu       sync.RWMutex
	products map[int64]Product
}

func NewStore(products ...Product) *Store {
	s := &Store{products: make(map[int64]Product, len(products))}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

// NewSeededStore returns the demo catalog.
func NewSeededStore() *Store {
	return NewStore(
		product(1, "Laptop", "High-performance laptop", "999.99", 10),
		product(2, "Mouse", "Wireless mouse", "29.99", 50),
		product(3, "Keyboard", "Mechanical keyboard", "79.99", 30),
		product(4, "Monitor", "27-inch 4K monitor", "399.99", 15),
		product(5, "Headphones", "Noise-cancelling headphones", "199.99", 25),
	)
}

func product(id int64, name, desc, price string, stock int) Product {
	return Product{
		ID:          id,
		Name:        name,
		Description: desc,
		Price:       domain.NewMoney(decimal.RequireFromString(price), domain.DefaultCurrency),
		Stock:       stock,
	}
}

// List returns every product ordered by id.
func (s *Store) List(_ context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	slices.SortFunc(out, func(a, b Product) int {
		return int(a.ID - b.ID)
	})
	return out, nil
}

func (s *Store) Get(_ context.Context, id int64) (Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return Product{}, fmt.Errorf("product[%d]: %w", id, domain.ErrProductNotFound)
	}
	return p, nil
}
