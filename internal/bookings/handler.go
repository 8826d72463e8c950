package bookings

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/appointment-scheduler/internal/identity"
	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// Handler exposes the booking lifecycle over HTTP. The caller identity is
// placed on the request context by the auth middleware.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("bookings: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

type statusRequest struct {
	Status Status `json:"status"`
}

type errorResponse struct {
	Error    string   `json:"error"`
	Field    string   `json:"field,omitempty"`
	Resource string   `json:"resource,omitempty"`
	IDs      []string `json:"ids,omitempty"`
}

// Create handles POST /bookings.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	view, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

// List handles GET /bookings?status=&from=&to=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	filter, err := parseListFilter(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	out, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"bookings": out})
}

// Get handles GET /bookings/{bookingID}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	view, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "bookingID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateStatus handles PATCH /bookings/{bookingID}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	b, err := h.service.UpdateStatus(r.Context(), actor, chi.URLParam(r, "bookingID"), req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// UpdatePayment handles PATCH /bookings/{bookingID}/payment.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req PaymentUpdate
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	b, err := h.service.UpdatePayment(r.Context(), actor, chi.URLParam(r, "bookingID"), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Delete handles DELETE /bookings/{bookingID}.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "bookingID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ChatAccess handles GET /bookings/{bookingID}/chat/access.
func (h *Handler) ChatAccess(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	access, err := h.service.ChatAccess(r.Context(), actor, chi.URLParam(r, "bookingID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, access)
}

// History handles GET /bookings/{bookingID}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	events, err := h.service.History(r.Context(), actor, chi.URLParam(r, "bookingID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

// Block handles POST /providers/me/blocks.
func (h *Handler) Block(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req BlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	slot, err := h.service.Block(r.Context(), actor, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, slot)
}

// Unblock handles DELETE /providers/me/blocks/{slotID}.
func (h *Handler) Unblock(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := h.service.Unblock(r.Context(), actor, chi.URLParam(r, "slotID")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (identity.Actor, bool) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		jsonError(w, "missing caller identity", http.StatusUnauthorized)
		return identity.Actor{}, false
	}
	return actor, true
}

func parseListFilter(r *http.Request) (ListFilter, error) {
	q := r.URL.Query()
	var filter ListFilter
	if raw := q.Get("status"); raw != "" {
		status, ok := ParseStatus(raw)
		if !ok {
			return filter, invalid("status", "must be pending, confirmed, cancelled or completed")
		}
		filter.Status = status
	}
	if raw := q.Get("from"); raw != "" {
		d, err := scheduling.ParseDate(raw)
		if err != nil {
			return filter, invalid("from", "must be YYYY-MM-DD")
		}
		filter.From = d
	}
	if raw := q.Get("to"); raw != "" {
		d, err := scheduling.ParseDate(raw)
		if err != nil {
			return filter, invalid("to", "must be YYYY-MM-DD")
		}
		filter.To = d
	}
	return filter, nil
}

// writeError maps the domain error kinds onto HTTP statuses. Anything else is
// logged and reported as a 500 without detail.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		ve *ValidationError
		nf *NotFoundError
		ce *ConflictError
		fe *ForbiddenError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field})
	case errors.As(err, &nf):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: nf.Error(), Resource: nf.Resource, IDs: nf.IDs})
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, errorResponse{Error: ce.Message})
	case errors.As(err, &fe):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: fe.Message})
	default:
		h.logger.Error("booking request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
