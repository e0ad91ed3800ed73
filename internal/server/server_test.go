package server

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandler(t *testing.T) {
	reg := NewRegistry()
	h := Handler("cart-service", reg, func(mux *http.ServeMux) {
		mux.HandleFunc("GET /api/ping", func(w http.ResponseWriter, _ *http.Request) {
			_, _ = io.WriteString(w, "pong")
		})
	})

	serve := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	rec := serve("/api/ping")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "pong", rec.Body.String())

	rec = serve("/health")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"service":"cart-service"`)

	rec = serve("/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `cartsaga_cart_service_http_requests_total{handler="GET /api/ping",status="200"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestNew(t *testing.T) {
	srv := New(8082, http.NotFoundHandler())
	assert.Equal(t, ":8082", srv.Addr)
	assert.NotZero(t, srv.ReadHeaderTimeout)
}
