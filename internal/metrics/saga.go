package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	CheckoutCreated  = "created"
	CheckoutReplayed = "replayed"
	CheckoutInvalid  = "invalid"
	CheckoutFailed   = "failed"

	CartClearDone     = "cleared"
	CartClearNotFound = "not_found"
	CartClearFailed   = "failed"
)

// Saga tracks checkouts and the follow-up cart clear. A nil *Saga records
// nothing.
type Saga struct {
	checkouts       *prometheus.CounterVec
	orderValue      prometheus.Histogram
	cartClears      *prometheus.CounterVec
	cartClearTries  prometheus.Histogram
	eventsPublished *prometheus.CounterVec
	statusChanges   *prometheus.CounterVec
}

func NewSaga(reg prometheus.Registerer) *Saga {
	s := &Saga{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "checkouts_total",
			Help:      "Checkout requests by result.",
		}, []string{"result"}),
		orderValue: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "order_value",
			Help:      "Total value of created orders.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}),
		cartClears: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "cart_clears_total",
			Help:      "Post-checkout cart clear outcomes.",
		}, []string{"result"}),
		cartClearTries: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "cart_clear_attempts",
			Help:      "Attempts spent per post-checkout cart clear.",
			Buckets:   []float64{1, 2, 3, 4, 5},
		}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "events_published_total",
			Help:      "Order events handed to the broker by result.",
		}, []string{"result"}),
		statusChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "order",
			Name:      "status_changes_total",
			Help:      "Order status transitions by target status.",
		}, []string{"status"}),
	}

	reg.MustRegister(s.checkouts, s.orderValue, s.cartClears, s.cartClearTries, s.eventsPublished, s.statusChanges)
	return s
}

func (s *Saga) Checkout(result string) {
	if s == nil {
		return
	}
	s.checkouts.WithLabelValues(result).Inc()
}

func (s *Saga) OrderValue(value float64) {
	if s == nil {
		return
	}
	s.orderValue.Observe(value)
}

func (s *Saga) CartClear(result string, attempts int) {
	if s == nil {
		return
	}
	s.cartClears.WithLabelValues(result).Inc()
	s.cartClearTries.Observe(float64(attempts))
}

func (s *Saga) EventPublished(ok bool) {
	if s == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	s.eventsPublished.WithLabelValues(result).Inc()
}

func (s *Saga) StatusChanged(status string) {
	if s == nil {
		return
	}
	s.statusChanges.WithLabelValues(status).Inc()
}
