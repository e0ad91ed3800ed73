package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the per-owner basket. Version is bumped by exactly one on every
// committed write and is the token compared by the store on save.
type Cart struct {
	OwnerID string
	Items   []CartItem
	Version int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is a line of a cart. ID is assigned by the store; zero means the
// line has not been persisted yet.
type CartItem struct {
	ID          int64
	ProductID   int64
	ProductName string
	Price       Money
	Quantity    int

	CreatedAt time.Time
}

// Clone returns a copy whose Items slice does not alias the receiver's.
func (c Cart) Clone() Cart {
	c.Items = slices.Clone(c.Items)
	return c
}

// ItemByProduct returns the index of the line holding productID.
func (c Cart) ItemByProduct(productID int64) (int, bool) {
	idx := slices.IndexFunc(c.Items, func(it CartItem) bool {
		return it.ProductID == productID
	})
	return idx, idx >= 0
}

// ItemByID returns the index of the line with the given line id.
func (c Cart) ItemByID(lineID int64) (int, bool) {
	idx := slices.IndexFunc(c.Items, func(it CartItem) bool {
		return it.ID == lineID
	})
	return idx, idx >= 0
}

// QuantityByName sums the quantities of all lines whose product name matches
// name case-insensitively.
func (c Cart) QuantityByName(name string) int {
	total := 0
	for _, it := range c.Items {
		if strings.EqualFold(it.ProductName, name) {
			total += it.Quantity
		}
	}
	return total
}

func (c Cart) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Price.Times(it.Quantity).Amount)
	}
	return total
}
