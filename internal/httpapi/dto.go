package httpapi

import (
	"time"

	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/shopspring/decimal"
)

type cartItemResponse struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Quantity    int             `json:"quantity"`
}

type cartResponse struct {
	UserID     string             `json:"userId"`
	Items      []cartItemResponse `json:"items"`
	Version    int64              `json:"version"`
	ItemCount  int                `json:"itemCount"`
	TotalValue string             `json:"totalValue"`
	CreatedAt  time.Time          `json:"createdAt"`
	UpdatedAt  time.Time          `json:"updatedAt"`
}

type addItemRequest struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

type orderItemDTO struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

type checkoutRequest struct {
	UserID string         `json:"userId"`
	Items  []orderItemDTO `json:"items"`
}

type orderResponse struct {
	ID          int64          `json:"id"`
	UserID      string         `json:"userId"`
	Items       []orderItemDTO `json:"items"`
	TotalAmount string         `json:"totalAmount"`
	Currency    string         `json:"currency"`
	Status      string         `json:"status"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

func toCartResponse(c domain.Cart) cartResponse {
	items := make([]cartItemResponse, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, cartItemResponse{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       it.Price.Amount,
			Currency:    it.Price.Currency.String(),
			Quantity:    it.Quantity,
		})
	}

	return cartResponse{
		UserID:     c.OwnerID,
		Items:      items,
		Version:    c.Version,
		ItemCount:  len(c.Items),
		TotalValue: c.TotalValue().StringFixed(2),
		CreatedAt:  c.CreatedAt,
		UpdatedAt:  c.UpdatedAt,
	}
}

func toOrderResponse(o domain.Order) orderResponse {
	items := make([]orderItemDTO, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, orderItemDTO{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       it.Price.Amount,
			Quantity:    it.Quantity,
		})
	}

	return orderResponse{
		ID:          o.ID,
		UserID:      o.OwnerID,
		Items:       items,
		TotalAmount: o.Total.Amount.StringFixed(2),
		Currency:    o.Total.Currency.String(),
		Status:      string(o.Status),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func toOrderResponses(orders []domain.Order) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o))
	}
	return out
}

func (d orderItemDTO) toDomain() domain.OrderItem {
	return domain.OrderItem{
		ProductID:   d.ProductID,
		ProductName: d.ProductName,
		Price:       domain.NewMoney(d.Price, domain.DefaultCurrency),
		Quantity:    d.Quantity,
	}
}
