package cartclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/nikolayk812/cartsaga/internal/cartclient"
	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_ClearCart(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		wantErr error
		anyErr  bool
	}{
		{name: "cleared", status: http.StatusOK},
		{name: "no cart", status: http.StatusNotFound, wantErr: domain.ErrCartNotFound},
		{name: "conflict", status: http.StatusConflict, wantErr: domain.ErrVersionConflict},
		{name: "bad request", status: http.StatusBadRequest, wantErr: domain.ErrInvalidInput},
		{name: "server error", status: http.StatusInternalServerError, anyErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := make(chan string, 1)

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got <- r.Method + " " + r.URL.EscapedPath()
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error":"x"}`))
			}))
			defer srv.Close()

			client, err := cartclient.New(srv.URL+"/", nil)
			require.NoError(t, err)

			err = client.ClearCart(t.Context(), "user 1")

			assert.Equal(t, "DELETE /api/cart/user%201", <-got)

			switch {
			case tt.wantErr != nil:
				require.ErrorIs(t, err, tt.wantErr)
			case tt.anyErr:
				require.Error(t, err)
			default:
				require.NoError(t, err)
			}
		})
	}
}

func TestClient_ClearCart_ContextDeadline(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client, err := cartclient.New(srv.URL, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Millisecond)
	defer cancel()

	err = client.ClearCart(ctx, "u1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew_EmptyURL(t *testing.T) {
	_, err := cartclient.New(" ", nil)
	require.EqualError(t, err, "baseURL is empty")
}
