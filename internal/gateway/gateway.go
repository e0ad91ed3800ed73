// Package gateway routes public API paths to the owning service.
package gateway

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
)

type Upstreams struct {
	Catalog string
	Cart    string
	Order   string
}

type Gateway struct {
	catalog *httputil.ReverseProxy
	cart    *httputil.ReverseProxy
	order   *httputil.ReverseProxy
}

// New builds one reverse proxy per upstream. A nil transport means
// http.DefaultTransport.
func New(up Upstreams, transport http.RoundTripper, log *slog.Logger) (*Gateway, error) {
	catalog, err := newProxy("catalog", up.Catalog, transport, log)
	if err != nil {
		return nil, err
	}
	cart, err := newProxy("cart", up.Cart, transport, log)
	if err != nil {
		return nil, err
	}
	order, err := newProxy("order", up.Order, transport, log)
	if err != nil {
		return nil, err
	}

	return &Gateway{catalog: catalog, cart: cart, order: order}, nil
}

func (g *Gateway) Register(mux *http.ServeMux) {
	mux.Handle("/api/products", g.catalog)
	mux.Handle("/api/products/", g.catalog)
	mux.Handle("/api/cart/", g.cart)
	mux.Handle("/api/orders", g.order)
	mux.Handle("/api/orders/", g.order)
}

func newProxy(name, rawURL string, transport http.RoundTripper, log *slog.Logger) (*httputil.ReverseProxy, error) {
	target, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("url.Parse %s upstream: %w", name, err)
	}
	if target.Scheme == "" || target.Host == "" {
		return nil, fmt.Errorf("%s upstream %q must be an absolute url", name, rawURL)
	}

	proxy := httputil.NewSingleHostReverseProxy(target)
	proxy.Transport = transport
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		log.Error("upstream unavailable",
			slog.String("upstream", name),
			slog.String("path", r.URL.Path),
			slog.Any("err", err))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"error":   "BadGateway",
			"message": name + " service unavailable",
		})
	}

	return proxy, nil
}
