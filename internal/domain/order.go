package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

type Order struct {
	ID      int64
	OwnerID string
	Items   []OrderItem
	Total   Money
	Status  OrderStatus

	CreatedAt time.Time
	UpdatedAt time.Time
}

// OrderItem is a snapshot of a checked-out line; it never references a cart.
type OrderItem struct {
	ProductID   int64
	ProductName string
	Price       Money
	Quantity    int
}

// OrderTotal sums price × quantity over items.
func OrderTotal(items []OrderItem, unit currency.Unit) Money {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Price.Times(it.Quantity).Amount)
	}
	return Money{Amount: total, Currency: unit}
}

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

// fulfilment order; CANCELLED sits outside of it.
var statusRank = map[OrderStatus]int{
	OrderStatusPending:    0,
	OrderStatusConfirmed:  1,
	OrderStatusProcessing: 2,
	OrderStatusShipped:    3,
	OrderStatusDelivered:  4,
}

func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := statusRank[status]; ok || status == OrderStatusCancelled {
		return status, nil
	}
	return "", fmt.Errorf("unknown order status %q: %w", s, ErrInvalidInput)
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo reports whether next is reachable from s: strictly forward
// through the fulfilment sequence, or CANCELLED from any non-terminal state.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == OrderStatusCancelled {
		return true
	}

	from, ok := statusRank[s]
	if !ok {
		return false
	}
	to, ok := statusRank[next]
	if !ok {
		return false
	}

	return to > from
}

type Revenue struct {
	TotalRevenue decimal.Decimal
	OrderCount   int64
}

func (r Revenue) AverageOrderValue() decimal.Decimal {
	if r.OrderCount == 0 {
		return decimal.Zero
	}
	return r.TotalRevenue.Div(decimal.NewFromInt(r.OrderCount))
}
