package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/nikolayk812/cartsaga/internal/catalog"
	"github.com/shopspring/decimal"
)

type productResponse struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Currency    string          `json:"currency"`
	Stock       int             `json:"stock"`
}

func toProductResponse(p catalog.Product) productResponse {
	return productResponse{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price.Amount,
		Currency:    p.Price.Currency.String(),
		Stock:       p.Stock,
	}
}

type CatalogHandler struct {
	store *catalog.Store
	log   *slog.Logger
}

func NewCatalogHandler(store *catalog.Store, log *slog.Logger) *CatalogHandler {
	return &CatalogHandler{store: store, log: log}
}

func (h *CatalogHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.list)
	mux.HandleFunc("GET /api/products/{id}", h.get)
}

func (h *CatalogHandler) list(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	out := make([]productResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p))
	}
	writeJSON(w, h.log, http.StatusOK, out)
}

func (h *CatalogHandler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, h.log, http.StatusBadRequest, errorResponse{Error: ClassInvalidInput, Message: "invalid product id"})
		return
	}

	p, err := h.store.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, toProductResponse(p))
}
