package metrics_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nikolayk812/cartsaga/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServerMetrics_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewServerMetrics(reg, "test")

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/cart/{userId}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})
	h := m.Middleware(mux)

	for _, user := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/cart/"+user, nil))
		assert.Equal(t, http.StatusConflict, rec.Code)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Requests.WithLabelValues("GET /api/cart/{userId}", "409")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Requests.WithLabelValues("unmatched", "404")), 0)
}

func TestHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	cart := metrics.NewCart(reg)
	cart.ConflictRetried("add_item")

	rec := httptest.NewRecorder()
	metrics.Handler(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `cartsaga_cart_version_conflicts_total{op="add_item"} 1`))
}

func TestNilMetricsAreNoop(t *testing.T) {
	var cart *metrics.Cart
	var saga *metrics.Saga

	assert.NotPanics(t, func() {
		cart.ConflictRetried("add_item")
		cart.ConcurrencyExhausted("add_item")
		cart.BusinessRuleViolated("Keyboard")
		cart.ItemsAdded("Keyboard", 1)
		cart.FunnelStage("view")
		saga.Checkout(metrics.CheckoutCreated)
		saga.OrderValue(10)
		saga.CartClear(metrics.CartClearFailed, 3)
		saga.EventPublished(true)
		saga.StatusChanged("SHIPPED")
	})
}
