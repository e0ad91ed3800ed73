package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/nikolayk812/cartsaga/internal/events"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func TestNewClient(t *testing.T) {
	assert.False(t, events.NewClient("").Enabled())

	c := events.NewClient(" kafka:9092, ,kafka2:9092 ")
	assert.True(t, c.Enabled())
	assert.Equal(t, []string{"kafka:9092", "kafka2:9092"}, c.Brokers)

	w := c.NewWriter(events.DefaultTopic)
	assert.Equal(t, events.DefaultTopic, w.Topic)
}

func TestOrderPublisher_PublishOrderConfirmed(t *testing.T) {
	w := &recordingWriter{}
	pub := events.NewOrderPublisher(w)

	order := domain.Order{
		ID:      12,
		OwnerID: "u1",
		Items: []domain.OrderItem{{
			ProductID:   3,
			ProductName: "Keyboard",
			Price:       domain.NewMoney(decimal.RequireFromString("79.99"), domain.DefaultCurrency),
			Quantity:    2,
		}},
		Total:  domain.NewMoney(decimal.RequireFromString("159.98"), domain.DefaultCurrency),
		Status: domain.OrderStatusConfirmed,
	}

	require.NoError(t, pub.PublishOrderConfirmed(t.Context(), order))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "12", string(w.msgs[0].Key))

	var ev events.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	assert.Equal(t, events.TypeOrderConfirmed, ev.Type)
	assert.Equal(t, int64(12), ev.OrderID)
	assert.NotEmpty(t, ev.EventID)
	assert.Equal(t, "159.98", ev.Payload.TotalAmount)
	assert.Equal(t, "USD", ev.Payload.Currency)
	require.Len(t, ev.Payload.Items, 1)
	assert.Equal(t, "79.99", ev.Payload.Items[0].Price)
}

func TestOrderPublisher_WriterError(t *testing.T) {
	errBroker := errors.New("broker unavailable")
	pub := events.NewOrderPublisher(&recordingWriter{err: errBroker})

	err := pub.PublishOrderConfirmed(t.Context(), domain.Order{ID: 1})
	require.ErrorIs(t, err, errBroker)
}
