// Package httpapi exposes the cart and order services over HTTP/JSON.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/nikolayk812/cartsaga/internal/domain"
)

const (
	HeaderSessionID = "X-Session-ID"
	HeaderJourneyID = "X-Journey-ID"

	HeaderOrderID    = "X-Order-Id"
	HeaderOrderValue = "X-Order-Value"
	HeaderItemCount  = "X-Item-Count"

	maxBodyBytes = 1 << 20
)

// error classes carried in the "error" field of every error body
const (
	ClassBusinessRuleViolation = "BusinessRuleViolation"
	ClassConcurrencyExhausted  = "ConcurrencyExhausted"
	ClassConcurrencyConflict   = "ConcurrencyConflict"
	ClassInvalidInput          = "InvalidInput"
	ClassInvalidCheckout       = "InvalidCheckout"
	ClassNotFound              = "NotFound"
	ClassInvalidTransition     = "InvalidTransition"
	ClassInjectedFault         = "InjectedFault"
	ClassInternal              = "Internal"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`

	Current   *int   `json:"current,omitempty"`
	Attempted *int   `json:"attempted,omitempty"`
	Limit     *int   `json:"limit,omitempty"`
	Attempts  int    `json:"attempts,omitempty"`
	From      string `json:"from,omitempty"`
	To        string `json:"to,omitempty"`
}

// writeJSON sends v with status. The header is already out when encoding
// fails, so the failure can only be logged.
func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("response encode failed", slog.Int("status", status), slog.Any("err", err))
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %v: %w", err, domain.ErrInvalidInput)
	}
	return nil
}

// writeError maps err onto a status code and error class. Unclassified errors
// are logged and answered with a generic 500.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var (
		ruleErr    *domain.BusinessRuleViolationError
		exhausted  *domain.ConcurrencyExhaustedError
		transition *domain.InvalidTransitionError
	)

	switch {
	case errors.As(err, &ruleErr):
		writeJSON(w, log, http.StatusBadRequest, errorResponse{
			Error:     ClassBusinessRuleViolation,
			Message:   ruleErr.Error(),
			Current:   &ruleErr.Current,
			Attempted: &ruleErr.Attempted,
			Limit:     &ruleErr.Limit,
		})
	case errors.As(err, &exhausted):
		writeJSON(w, log, http.StatusConflict, errorResponse{
			Error:    ClassConcurrencyExhausted,
			Message:  exhausted.Error(),
			Attempts: exhausted.Attempts,
		})
	case errors.As(err, &transition):
		writeJSON(w, log, http.StatusConflict, errorResponse{
			Error:   ClassInvalidTransition,
			Message: transition.Error(),
			From:    string(transition.From),
			To:      string(transition.To),
		})
	case errors.Is(err, domain.ErrVersionConflict), errors.Is(err, domain.ErrCheckoutInProgress):
		writeJSON(w, log, http.StatusConflict, errorResponse{
			Error:   ClassConcurrencyConflict,
			Message: "resource was updated by another request, please retry",
		})
	case errors.Is(err, domain.ErrCartNotFound), errors.Is(err, domain.ErrOrderNotFound), errors.Is(err, domain.ErrProductNotFound):
		writeJSON(w, log, http.StatusNotFound, errorResponse{Error: ClassNotFound, Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidCheckout):
		writeJSON(w, log, http.StatusBadRequest, errorResponse{Error: ClassInvalidCheckout, Message: err.Error()})
	case errors.Is(err, domain.ErrInvalidInput):
		writeJSON(w, log, http.StatusBadRequest, errorResponse{Error: ClassInvalidInput, Message: err.Error()})
	case errors.Is(err, domain.ErrInjectedFault):
		log.Error("injected fault", slog.Any("err", err))
		writeJSON(w, log, http.StatusInternalServerError, errorResponse{Error: ClassInjectedFault, Message: err.Error()})
	default:
		log.Error("request failed", slog.Any("err", err))
		writeJSON(w, log, http.StatusInternalServerError, errorResponse{Error: ClassInternal, Message: "internal error"})
	}
}

// Health answers liveness checks.
func Health(service string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, slog.Default(), http.StatusOK, map[string]string{"status": "UP", "service": service})
	}
}
