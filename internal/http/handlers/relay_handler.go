package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/otakuogeek/clinic-callcenter/internal/provider/relay"
	"github.com/otakuogeek/clinic-callcenter/pkg/logging"
)

// RelayDiagnostics exposes the relay provider's account endpoints.
type RelayDiagnostics interface {
	Balance(ctx context.Context) (*relay.BalanceResult, error)
	SIPNumbers(ctx context.Context) (*relay.SIPListResult, error)
}

// RelayHandler serves read-only relay account diagnostics for operators.
type RelayHandler struct {
	relay  RelayDiagnostics
	logger *logging.Logger
}

func NewRelayHandler(r RelayDiagnostics, logger *logging.Logger) *RelayHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &RelayHandler{relay: r, logger: logger}
}

// RegisterRoutes mounts relay diagnostics under a chi router.
// Expected to be mounted under /api/relay
func (h *RelayHandler) RegisterRoutes(r chi.Router) {
	r.Get("/balance", h.balance)
	r.Get("/numbers", h.numbers)
}

func (h *RelayHandler) balance(w http.ResponseWriter, r *http.Request) {
	if h.relay == nil {
		http.Error(w, "relay provider not configured", http.StatusServiceUnavailable)
		return
	}
	res, err := h.relay.Balance(r.Context())
	if err != nil {
		h.logger.Error("relay handler: balance", "error", err)
		http.Error(w, "relay provider error", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *RelayHandler) numbers(w http.ResponseWriter, r *http.Request) {
	if h.relay == nil {
		http.Error(w, "relay provider not configured", http.StatusServiceUnavailable)
		return
	}
	res, err := h.relay.SIPNumbers(r.Context())
	if err != nil {
		h.logger.Error("relay handler: sip numbers", "error", err)
		http.Error(w, "relay provider error", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
