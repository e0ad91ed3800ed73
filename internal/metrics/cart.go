package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Cart counts cart mutation outcomes. A nil *Cart records nothing.
type Cart struct {
	conflicts      *prometheus.CounterVec
	exhausted      *prometheus.CounterVec
	ruleViolations *prometheus.CounterVec
	itemsAdded     *prometheus.CounterVec
	funnel         *prometheus.CounterVec
}

func NewCart(reg prometheus.Registerer) *Cart {
	c := &Cart{
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "version_conflicts_total",
			Help:      "Version conflicts that triggered a retry.",
		}, []string{"op"}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "concurrency_exhausted_total",
			Help:      "Mutations that gave up after the last retry.",
		}, []string{"op"}),
		ruleViolations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "business_rule_violations_total",
			Help:      "Adds rejected by a per-customer quantity limit.",
		}, []string{"product"}),
		itemsAdded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "items_added_total",
			Help:      "Units added to carts.",
		}, []string{"product"}),
		funnel: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cart",
			Name:      "funnel_events_total",
			Help:      "Shopping funnel stages reached.",
		}, []string{"stage"}),
	}

	reg.MustRegister(c.conflicts, c.exhausted, c.ruleViolations, c.itemsAdded, c.funnel)
	return c
}

func (c *Cart) ConflictRetried(op string) {
	if c == nil {
		return
	}
	c.conflicts.WithLabelValues(op).Inc()
}

func (c *Cart) ConcurrencyExhausted(op string) {
	if c == nil {
		return
	}
	c.exhausted.WithLabelValues(op).Inc()
}

func (c *Cart) BusinessRuleViolated(product string) {
	if c == nil {
		return
	}
	c.ruleViolations.WithLabelValues(strings.ToLower(product)).Inc()
}

func (c *Cart) ItemsAdded(product string, quantity int) {
	if c == nil {
		return
	}
	c.itemsAdded.WithLabelValues(strings.ToLower(product)).Add(float64(quantity))
}

func (c *Cart) FunnelStage(stage string) {
	if c == nil {
		return
	}
	c.funnel.WithLabelValues(stage).Inc()
}
