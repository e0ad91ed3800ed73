package loadgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/nikolayk812/cartsaga/internal/httpapi"
	"github.com/nikolayk812/cartsaga/internal/idempotency"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	GatewayURL string
	Users      int
	Intensity  Intensity
	Enabled    bool

	Tick           time.Duration
	AdminTick      time.Duration
	RequestTimeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		GatewayURL:     "http://localhost:8080",
		Users:          50,
		Intensity:      IntensityMedium,
		Enabled:        true,
		Tick:           2 * time.Second,
		AdminTick:      15 * time.Second,
		RequestTimeout: 5 * time.Second,
	}
}

type Generator struct {
	cfg    Config
	client *http.Client
	log    *slog.Logger
	stats  *Stats

	sessions  []string
	enabled   atomic.Bool
	intensity atomic.Value
}

func New(cfg Config, client *http.Client, log *slog.Logger) (*Generator, error) {
	if cfg.Users < 1 {
		return nil, fmt.Errorf("users must be positive, got %d", cfg.Users)
	}
	if _, err := ParseIntensity(string(cfg.Intensity)); err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}

	g := &Generator{
		cfg:      cfg,
		client:   client,
		log:      log,
		stats:    NewStats(),
		sessions: make([]string, cfg.Users+1),
	}
	g.cfg.GatewayURL = strings.TrimRight(cfg.GatewayURL, "/")
	g.enabled.Store(cfg.Enabled)
	g.intensity.Store(cfg.Intensity)

	// index 0 is the admin session
	for i := range g.sessions {
		g.sessions[i] = "loadgen-session-" + uuid.NewString()
	}

	return g, nil
}

func (g *Generator) Stats() *Stats { return g.stats }

func (g *Generator) Enabled() bool { return g.enabled.Load() }

func (g *Generator) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
	g.log.Info("load generation toggled", slog.Bool("enabled", enabled))
}

func (g *Generator) Intensity() Intensity {
	return g.intensity.Load().(Intensity)
}

func (g *Generator) SetIntensity(i Intensity) {
	g.intensity.Store(i)
	g.log.Info("load intensity set", slog.String("intensity", string(i)))
}

// Run starts journeys every tick until ctx is done.
func (g *Generator) Run(ctx context.Context) error {
	tick := time.NewTicker(g.cfg.Tick)
	defer tick.Stop()
	admin := time.NewTicker(g.cfg.AdminTick)
	defer admin.Stop()

	g.log.Info("load generator started",
		slog.String("gateway", g.cfg.GatewayURL),
		slog.Int("users", g.cfg.Users),
		slog.String("intensity", string(g.Intensity())))

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick.C:
			if g.Enabled() {
				g.Tick(ctx)
			}
		case <-admin.C:
			if g.Enabled() {
				g.AdminJourney(ctx)
			}
		}
	}
}

// Tick runs one batch of concurrent journeys for random users.
func (g *Generator) Tick(ctx context.Context) {
	var eg errgroup.Group

	for range g.Intensity().Concurrency() {
		userIndex := rand.IntN(g.cfg.Users) + 1
		eg.Go(func() error {
			if _, err := g.RunJourney(ctx, userIndex); err != nil {
				g.log.Debug("journey stopped early", slog.Int("user", userIndex), slog.Any("err", err))
			}
			return nil
		})
	}

	_ = eg.Wait()
}

type journey struct {
	userID    string
	sessionID string
	journeyID string
}

type product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

type cartLine struct {
	ProductID   int64           `json:"productId"`
	ProductName string          `json:"productName"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

type cartView struct {
	Items []cartLine `json:"items"`
}

// RunJourney plays the persona of the user at userIndex. It stops at the first
// failed step.
func (g *Generator) RunJourney(ctx context.Context, userIndex int) (Persona, error) {
	persona := PersonaFor(userIndex, g.cfg.Users)
	j := journey{
		userID:    "user" + strconv.Itoa(userIndex),
		sessionID: g.sessions[userIndex],
		journeyID: "loadgen-journey-" + uuid.NewString(),
	}

	var products []product
	if err := g.call(ctx, j, ActionBrowseProducts, http.MethodGet, "/api/products", nil, &products); err != nil {
		return persona, err
	}
	if len(products) == 0 {
		return persona, fmt.Errorf("catalog is empty")
	}

	first := products[rand.IntN(len(products))]
	if err := g.viewProduct(ctx, j, first.ID); err != nil {
		return persona, err
	}

	switch persona {
	case PersonaBrowseOnly:
		return persona, g.viewProduct(ctx, j, products[rand.IntN(len(products))].ID)

	case PersonaAddAbandon:
		return persona, g.addToCart(ctx, j, products[rand.IntN(len(products))])

	case PersonaViewAbandon:
		if err := g.addToCart(ctx, j, products[rand.IntN(len(products))]); err != nil {
			return persona, err
		}
		if err := g.addToCart(ctx, j, products[rand.IntN(len(products))]); err != nil {
			return persona, err
		}
		_, err := g.viewCart(ctx, j)
		return persona, err
	}

	if err := g.addToCart(ctx, j, first); err != nil {
		return persona, err
	}
	if err := g.addToCart(ctx, j, products[rand.IntN(len(products))]); err != nil {
		return persona, err
	}

	cart, err := g.viewCart(ctx, j)
	if err != nil {
		return persona, err
	}
	if len(cart.Items) > 0 {
		if err := g.checkout(ctx, j, cart.Items); err != nil {
			return persona, err
		}
	}

	return persona, g.call(ctx, j, ActionViewOrders, http.MethodGet, "/api/orders/user/"+j.userID, nil, nil)
}

// AdminJourney lists every order and looks up the first few by id.
func (g *Generator) AdminJourney(ctx context.Context) {
	j := journey{
		userID:    "admin",
		sessionID: g.sessions[0],
		journeyID: "loadgen-journey-" + uuid.NewString(),
	}

	if err := g.call(ctx, j, ActionViewAllOrders, http.MethodGet, "/api/orders", nil, nil); err != nil {
		g.log.Debug("admin journey failed", slog.Any("err", err))
	}

	for id := 1; id <= 5; id++ {
		_ = g.call(ctx, j, ActionViewOrder, http.MethodGet, "/api/orders/"+strconv.Itoa(id), nil, nil)
	}
}

func (g *Generator) viewProduct(ctx context.Context, j journey, id int64) error {
	return g.call(ctx, j, ActionViewProduct, http.MethodGet, "/api/products/"+strconv.FormatInt(id, 10), nil, nil)
}

func (g *Generator) addToCart(ctx context.Context, j journey, p product) error {
	body := cartLine{
		ProductID:   p.ID,
		ProductName: p.Name,
		Price:       p.Price,
		Quantity:    rand.IntN(3) + 1,
	}
	return g.call(ctx, j, ActionAddToCart, http.MethodPost, "/api/cart/"+j.userID+"/items", body, nil)
}

func (g *Generator) viewCart(ctx context.Context, j journey) (cartView, error) {
	var cart cartView
	err := g.call(ctx, j, ActionViewCart, http.MethodGet, "/api/cart/"+j.userID, nil, &cart)
	return cart, err
}

func (g *Generator) checkout(ctx context.Context, j journey, items []cartLine) error {
	body := struct {
		UserID string     `json:"userId"`
		Items  []cartLine `json:"items"`
	}{UserID: j.userID, Items: items}

	return g.call(ctx, j, ActionCheckout, http.MethodPost, "/api/orders/checkout", body, nil,
		idempotency.Header, uuid.NewString())
}

func (g *Generator) call(ctx context.Context, j journey, action, method, path string, body, out any, headers ...string) error {
	ctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("json.Marshal: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.cfg.GatewayURL+path, reader)
	if err != nil {
		return fmt.Errorf("http.NewRequestWithContext: %w", err)
	}
	req.Header.Set(httpapi.HeaderSessionID, j.sessionID)
	req.Header.Set(httpapi.HeaderJourneyID, j.journeyID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	start := time.Now()

	resp, err := g.client.Do(req)
	if err != nil {
		g.stats.Record(action, 0, false)
		return fmt.Errorf("%s: %w", action, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		_, _ = io.Copy(io.Discard, resp.Body)
		g.stats.Record(action, 0, false)
		return fmt.Errorf("%s: unexpected status %d", action, resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			g.stats.Record(action, 0, false)
			return fmt.Errorf("%s: decode: %w", action, err)
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}

	g.stats.Record(action, time.Since(start), true)
	return nil
}
