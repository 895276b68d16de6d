package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/otakuogeek/clinic-callcenter/internal/calls"
	"github.com/otakuogeek/clinic-callcenter/internal/dialer"
	"github.com/otakuogeek/clinic-callcenter/internal/provider"
	"github.com/otakuogeek/clinic-callcenter/pkg/logging"
)

// CallDialer is the orchestration surface the HTTP layer needs.
type CallDialer interface {
	PlaceCall(ctx context.Context, opts dialer.Options) dialer.Result
	PlacePhysicalCall(ctx context.Context, opts dialer.Options) dialer.Result
	EndCall(ctx context.Context, conversationID string) error
}

// AttemptReader looks up persisted call attempts and errors.
type AttemptReader interface {
	GetAttempt(ctx context.Context, conversationID string) (*calls.Attempt, error)
	RecentErrors(ctx context.Context, phoneNumber string, limit int) ([]calls.ErrorRecord, error)
}

// CallHandler exposes the outbound call trigger surface.
type CallHandler struct {
	dialer CallDialer
	store  AttemptReader
	logger *logging.Logger
}

// NewCallHandler creates the call trigger handler.
func NewCallHandler(d CallDialer, store AttemptReader, logger *logging.Logger) *CallHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &CallHandler{dialer: d, store: store, logger: logger}
}

// RegisterRoutes mounts call endpoints under a chi router.
// Expected to be mounted under /api/calls
func (h *CallHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.placeCall)
	r.Post("/physical", h.placePhysicalCall)
	r.Get("/{conversationID}", h.getAttempt)
	r.Post("/{conversationID}/end", h.endCall)
	r.Get("/errors", h.listErrors)
}

type placeCallRequest struct {
	PhoneNumber   string            `json:"phoneNumber"`
	PatientID     string            `json:"patientId,omitempty"`
	AppointmentID string            `json:"appointmentId,omitempty"`
	Message       string            `json:"message,omitempty"`
	AgentID       string            `json:"agentId,omitempty"`
	VoiceID       string            `json:"voiceId,omitempty"`
	DirectCall    bool              `json:"directCall,omitempty"`
	Variables     map[string]string `json:"variables,omitempty"`
	Metadata      map[string]any    `json:"metadata,omitempty"`
}

type placeCallResponse struct {
	Success                bool   `json:"success"`
	Status                 string `json:"status"`
	ConversationID         string `json:"conversationId,omitempty"`
	ProviderConversationID string `json:"providerConversationId,omitempty"`
	CallID                 string `json:"callId,omitempty"`
	Error                  string `json:"error,omitempty"`
	// PersistenceError reports a best-effort audit write failure; the call
	// outcome above still stands.
	PersistenceError string `json:"persistenceError,omitempty"`
}

func (h *CallHandler) placeCall(w http.ResponseWriter, r *http.Request) {
	h.handlePlacement(w, r, h.dialer.PlaceCall)
}

func (h *CallHandler) placePhysicalCall(w http.ResponseWriter, r *http.Request) {
	h.handlePlacement(w, r, h.dialer.PlacePhysicalCall)
}

func (h *CallHandler) handlePlacement(w http.ResponseWriter, r *http.Request, place func(context.Context, dialer.Options) dialer.Result) {
	var req placeCallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, placeCallResponse{Success: false, Status: "invalid_request", Error: "invalid JSON body"})
		return
	}
	if strings.TrimSpace(req.PhoneNumber) == "" {
		writeJSON(w, http.StatusBadRequest, placeCallResponse{Success: false, Status: "invalid_request", Error: "phoneNumber is required"})
		return
	}

	res := place(r.Context(), dialer.Options{
		PhoneNumber:   req.PhoneNumber,
		PatientID:     req.PatientID,
		AppointmentID: req.AppointmentID,
		Message:       req.Message,
		AgentID:       req.AgentID,
		VoiceID:       req.VoiceID,
		DirectCall:    req.DirectCall,
		Variables:     req.Variables,
		Metadata:      req.Metadata,
	})

	status := http.StatusOK
	if res.Err != nil && provider.IsValidation(res.Err) {
		status = http.StatusBadRequest
	}
	body := placeCallResponse{
		Success:                res.Success,
		Status:                 res.Status,
		ConversationID:         res.ConversationID,
		ProviderConversationID: res.ProviderConversationID,
		CallID:                 res.CallID,
	}
	if res.Err != nil {
		body.Error = res.Err.Error()
	}
	if res.PersistenceErr != nil {
		body.PersistenceError = res.PersistenceErr.Error()
	}
	writeJSON(w, status, body)
}

func (h *CallHandler) getAttempt(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	attempt, err := h.store.GetAttempt(r.Context(), conversationID)
	if err != nil {
		h.logger.Error("call handler: get attempt", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if attempt == nil {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"conversationId": attempt.ConversationID,
		"agentId":        attempt.AgentID,
		"phoneNumber":    attempt.PhoneNumber,
		"patientId":      attempt.PatientID,
		"appointmentId":  attempt.AppointmentID,
		"status":         attempt.Status,
		"metadata":       attempt.Metadata,
		"createdAt":      attempt.CreatedAt,
		"updatedAt":      attempt.UpdatedAt,
	})
}

func (h *CallHandler) endCall(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if err := h.dialer.EndCall(r.Context(), conversationID); err != nil {
		if provider.IsValidation(err) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error("call handler: end call", "conversation_id", conversationID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "status": calls.StatusEnded})
}

func (h *CallHandler) listErrors(w http.ResponseWriter, r *http.Request) {
	phone := r.URL.Query().Get("phoneNumber")
	if phone == "" {
		http.Error(w, "phoneNumber query parameter required", http.StatusBadRequest)
		return
	}
	records, err := h.store.RecentErrors(r.Context(), phone, 50)
	if err != nil {
		h.logger.Error("call handler: list errors", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []calls.ErrorRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"errors": records,
		"count":  len(records),
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
