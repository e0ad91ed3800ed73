package events

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/cartsaga/internal/domain"
)

const (
	DefaultTopic = "orders"

	TypeOrderConfirmed = "order.confirmed"
)

type Event struct {
	EventID   string       `json:"event_id"`
	Type      string       `json:"type"`
	OrderID   int64        `json:"order_id"`
	CreatedAt time.Time    `json:"created_at"`
	Payload   OrderPayload `json:"payload"`
}

type OrderPayload struct {
	UserID      string      `json:"user_id"`
	Status      string      `json:"status"`
	TotalAmount string      `json:"total_amount"`
	Currency    string      `json:"currency"`
	Items       []ItemEvent `json:"items"`
}

type ItemEvent struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Price       string `json:"price"`
	Quantity    int    `json:"quantity"`
}

// OrderPublisher writes order lifecycle events keyed by order id, so every
// event of one order lands on the same partition.
type OrderPublisher struct {
	writer MessageWriter
	now    func() time.Time
}

func NewOrderPublisher(writer MessageWriter) *OrderPublisher {
	return &OrderPublisher{writer: writer, now: time.Now}
}

func (p *OrderPublisher) PublishOrderConfirmed(ctx context.Context, order domain.Order) error {
	items := make([]ItemEvent, 0, len(order.Items))
	for _, it := range order.Items {
		items = append(items, ItemEvent{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Price:       it.Price.Amount.StringFixed(2),
			Quantity:    it.Quantity,
		})
	}

	ev := Event{
		EventID:   uuid.NewString(),
		Type:      TypeOrderConfirmed,
		OrderID:   order.ID,
		CreatedAt: p.now().UTC(),
		Payload: OrderPayload{
			UserID:      order.OwnerID,
			Status:      string(order.Status),
			TotalAmount: order.Total.Amount.StringFixed(2),
			Currency:    order.Total.Currency.String(),
			Items:       items,
		},
	}

	return PublishJSON(ctx, p.writer, strconv.FormatInt(order.ID, 10), ev)
}
