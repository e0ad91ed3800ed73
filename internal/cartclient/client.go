// Package cartclient calls the cart service over HTTP.
package cartclient

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/nikolayk812/cartsaga/internal/telemetry"
)

type Client struct {
	baseURL string
	http    *http.Client
}

// New returns a client for the cart service at baseURL. A nil httpClient gets
// a traced default without its own timeout; callers bound calls by context.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, fmt.Errorf("baseURL is empty")
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: telemetry.Transport(nil)}
	}

	return &Client{baseURL: baseURL, http: httpClient}, nil
}

// ClearCart empties the owner's cart. Status codes map back onto the domain
// errors the cart service started from, so callers can tell a missing cart
// from a lost race.
func (c *Client) ClearCart(ctx context.Context, ownerID string) error {
	endpoint := c.baseURL + "/api/cart/" + url.PathEscape(ownerID)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("http.Do: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return domain.ErrCartNotFound
	case resp.StatusCode == http.StatusConflict:
		return fmt.Errorf("cart service: %s: %w", strings.TrimSpace(string(body)), domain.ErrVersionConflict)
	case resp.StatusCode == http.StatusBadRequest:
		return fmt.Errorf("cart service: %s: %w", strings.TrimSpace(string(body)), domain.ErrInvalidInput)
	default:
		return fmt.Errorf("cart service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}
