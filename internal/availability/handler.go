package availability

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

type Handler struct {
	service *Service
	logger  *logging.Logger
}

func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if service == nil {
		panic("availability: service required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// Get handles GET /providers/{providerID}/availability?date=YYYY-MM-DD.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date is required", "field": "date"})
		return
	}
	date, err := scheduling.ParseDate(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "date must be YYYY-MM-DD", "field": "date"})
		return
	}

	out, err := h.service.ForDate(r.Context(), providerID, date)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "provider not found"})
			return
		}
		h.logger.Error("failed to compute availability", "error", err, "provider_id", providerID, "date", raw)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to compute availability"})
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
