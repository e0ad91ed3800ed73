package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/nikolayk812/cartsaga/internal/domain"
	"github.com/nikolayk812/cartsaga/internal/idempotency"
	"github.com/nikolayk812/cartsaga/internal/order"
)

type OrderHandler struct {
	svc *order.Service
	log *slog.Logger
	now func() time.Time
}

func NewOrderHandler(svc *order.Service, log *slog.Logger) *OrderHandler {
	return &OrderHandler{svc: svc, log: log, now: time.Now}
}

func (h *OrderHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/orders/checkout", h.checkout)
	mux.HandleFunc("GET /api/orders", h.listAll)
	mux.HandleFunc("GET /api/orders/{orderId}", h.getOrder)
	mux.HandleFunc("GET /api/orders/user/{userId}", h.listByUser)
	mux.HandleFunc("PUT /api/orders/{orderId}/status", h.updateStatus)
	mux.HandleFunc("GET /api/orders/control/slow-mode", h.getSlowMode)
	mux.HandleFunc("POST /api/orders/control/slow-mode", h.setSlowMode)
	mux.HandleFunc("GET /api/orders/metrics/revenue", h.revenue)
}

func (h *OrderHandler) checkout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}

	items := make([]domain.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, it.toDomain())
	}

	res, err := h.svc.Checkout(r.Context(), order.CheckoutInput{
		OwnerID:        req.UserID,
		Items:          items,
		IdempotencyKey: idempotency.Key(r),
		SessionID:      r.Header.Get(HeaderSessionID),
		JourneyID:      r.Header.Get(HeaderJourneyID),
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	w.Header().Set(HeaderOrderID, strconv.FormatInt(res.Order.ID, 10))
	w.Header().Set(HeaderOrderValue, res.OrderValue.Amount.StringFixed(2))
	w.Header().Set(HeaderItemCount, strconv.Itoa(res.ItemCount))
	writeJSON(w, h.log, http.StatusOK, toOrderResponse(res.Order))
}

func (h *OrderHandler) listAll(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListAll(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, toOrderResponses(orders))
}

func (h *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	o, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, toOrderResponse(o))
}

func (h *OrderHandler) listByUser(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.ListByOwner(r.Context(), r.PathValue("userId"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, toOrderResponses(orders))
}

func (h *OrderHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}

	status, err := domain.ParseOrderStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	o, err := h.svc.UpdateStatus(r.Context(), id, status)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, toOrderResponse(o))
}

type slowModeResponse struct {
	SlowModeEnabled bool   `json:"slowModeEnabled"`
	DelayMS         int64  `json:"delayMs"`
	Message         string `json:"message,omitempty"`
}

func (h *OrderHandler) getSlowMode(w http.ResponseWriter, _ *http.Request) {
	enabled, delay := h.svc.SlowMode().Get()
	writeJSON(w, h.log, http.StatusOK, slowModeResponse{SlowModeEnabled: enabled, DelayMS: delay.Milliseconds()})
}

func (h *OrderHandler) setSlowMode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	enabled := true
	if v := q.Get("enabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeJSON(w, h.log, http.StatusBadRequest, errorResponse{Error: ClassInvalidInput, Message: "enabled must be a boolean"})
			return
		}
		enabled = b
	}

	delay := order.DefaultSlowModeDelay
	if v := q.Get("delayMs"); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil || ms < 0 {
			writeJSON(w, h.log, http.StatusBadRequest, errorResponse{Error: ClassInvalidInput, Message: "delayMs must be a non-negative integer"})
			return
		}
		delay = time.Duration(ms) * time.Millisecond
	}

	h.svc.SlowMode().Set(enabled, delay)

	msg := "slow mode deactivated"
	if enabled {
		msg = "slow mode activated, GET /api/orders is delayed by " + delay.String()
	}
	h.log.Info(msg, slog.Bool("enabled", enabled), slog.Int64("delay_ms", delay.Milliseconds()))

	writeJSON(w, h.log, http.StatusOK, slowModeResponse{SlowModeEnabled: enabled, DelayMS: delay.Milliseconds(), Message: msg})
}

func (h *OrderHandler) revenue(w http.ResponseWriter, r *http.Request) {
	rev, err := h.svc.Revenue(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	h.log.Info("revenue metrics",
		slog.String("total_revenue", rev.TotalRevenue.StringFixed(2)),
		slog.Int64("total_orders", rev.OrderCount))

	writeJSON(w, h.log, http.StatusOK, map[string]any{
		"totalRevenue":      rev.TotalRevenue.StringFixed(2),
		"totalOrders":       rev.OrderCount,
		"averageOrderValue": rev.AverageOrderValue().StringFixed(2),
		"timestamp":         h.now().UTC().Format(time.RFC3339),
	})
}

func (h *OrderHandler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("orderId"), 10, 64)
	if err != nil || id < 1 {
		writeJSON(w, h.log, http.StatusBadRequest, errorResponse{Error: ClassInvalidInput, Message: "invalid order id"})
		return 0, false
	}
	return id, true
}
