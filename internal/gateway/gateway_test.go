package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func upstream(t *testing.T, name string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Upstream", name)
		_, _ = io.WriteString(w, r.Method+" "+r.URL.Path)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestGateway_Routes(t *testing.T) {
	catalog := upstream(t, "catalog")
	cart := upstream(t, "cart")
	order := upstream(t, "order")

	gw, err := New(Upstreams{Catalog: catalog.URL, Cart: cart.URL, Order: order.URL}, nil, discard)
	require.NoError(t, err)

	mux := http.NewServeMux()
	gw.Register(mux)

	tests := []struct {
		method   string
		path     string
		upstream string
	}{
		{http.MethodGet, "/api/products", "catalog"},
		{http.MethodGet, "/api/products/3", "catalog"},
		{http.MethodPost, "/api/cart/u-1/items", "cart"},
		{http.MethodDelete, "/api/cart/u-1", "cart"},
		{http.MethodGet, "/api/orders", "order"},
		{http.MethodPost, "/api/orders/checkout", "order"},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.upstream, rec.Header().Get("X-Upstream"))
			assert.Equal(t, tt.method+" "+tt.path, rec.Body.String())
		})
	}
}

func TestGateway_UpstreamDown(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	gw, err := New(Upstreams{Catalog: deadURL, Cart: deadURL, Order: deadURL}, nil, discard)
	require.NoError(t, err)

	mux := http.NewServeMux()
	gw.Register(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	require.Equal(t, http.StatusBadGateway, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "BadGateway", body["error"])
	assert.Equal(t, "order service unavailable", body["message"])
}

func TestNew_InvalidUpstream(t *testing.T) {
	_, err := New(Upstreams{Catalog: "localhost:8081", Cart: "http://c", Order: "http://o"}, nil, discard)
	assert.Error(t, err)
}
