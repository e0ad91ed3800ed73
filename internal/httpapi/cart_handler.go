package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nikolayk812/cartsaga/internal/cart"
	"github.com/nikolayk812/cartsaga/internal/domain"
)

type CartHandler struct {
	svc *cart.Service
	log *slog.Logger
}

func NewCartHandler(svc *cart.Service, log *slog.Logger) *CartHandler {
	return &CartHandler{svc: svc, log: log}
}

func (h *CartHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/cart/{userId}", h.getCart)
	mux.HandleFunc("POST /api/cart/{userId}/items", h.addItem)
	mux.HandleFunc("DELETE /api/cart/{userId}/items/{itemId}", h.removeItem)
	mux.HandleFunc("DELETE /api/cart/{userId}", h.clearCart)
	mux.HandleFunc("POST /api/cart/{userId}/view-event", h.viewEvent)
	mux.HandleFunc("POST /api/cart/{userId}/checkout-initiated", h.checkoutInitiated)
}

func (h *CartHandler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.View(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, toCartResponse(c))
}

func (h *CartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	c, err := h.svc.AddItem(r.Context(), r.PathValue("userId"), cart.AddItemInput{
		ProductID:   req.ProductID,
		ProductName: req.ProductName,
		Price:       domain.NewMoney(req.Price, domain.DefaultCurrency),
		Quantity:    req.Quantity,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, toCartResponse(c))
}

func (h *CartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := strconv.ParseInt(r.PathValue("itemId"), 10, 64)
	if err != nil {
		writeJSON(w, h.log, http.StatusBadRequest, errorResponse{Error: ClassInvalidInput, Message: "invalid item id"})
		return
	}

	c, err := h.svc.RemoveItem(r.Context(), r.PathValue("userId"), itemID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, toCartResponse(c))
}

func (h *CartHandler) clearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Clear(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, toCartResponse(c))
}

func (h *CartHandler) viewEvent(w http.ResponseWriter, r *http.Request) {
	h.log.Info("cart view event",
		slog.String("user_id", r.PathValue("userId")),
		slog.String("session_id", r.Header.Get(HeaderSessionID)),
		slog.String("journey_id", r.Header.Get(HeaderJourneyID)))

	c, _, err := h.svc.RecordView(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, toCartResponse(c))
}

func (h *CartHandler) checkoutInitiated(w http.ResponseWriter, r *http.Request) {
	_, sum, err := h.svc.InitiateCheckout(r.Context(), r.PathValue("userId"))
	if err != nil {
		h.log.Warn("checkout initiated without items",
			slog.String("funnel_stage", "checkout_drop_off"),
			slog.String("user_id", r.PathValue("userId")),
			slog.String("session_id", r.Header.Get(HeaderSessionID)))
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, h.log, http.StatusOK, map[string]any{
		"status":     "checkout_initiated",
		"items":      sum.ItemCount,
		"totalValue": sum.TotalValue.StringFixed(2),
	})
}
