package calendar

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/appointment-scheduler/internal/identity"
	"github.com/wolfman30/appointment-scheduler/internal/scheduling"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// Handler serves working hours.
type Handler struct {
	store  HoursStore
	logger *logging.Logger
}

func NewHandler(store HoursStore, logger *logging.Logger) *Handler {
	if store == nil {
		panic("calendar: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

// HoursResponse lists the stored entries and the effective hours per weekday.
type HoursResponse struct {
	ProviderID string                         `json:"providerId"`
	Hours      scheduling.WeeklyHours         `json:"hours"`
	Effective  map[string]scheduling.DayHours `json:"effective"`
}

// GetHours handles GET /providers/{providerID}/hours.
func (h *Handler) GetHours(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	week, err := h.store.Get(r.Context(), providerID)
	if err != nil {
		h.logger.Error("failed to get working hours", "provider_id", providerID, "error", err)
		http.Error(w, `{"error": "internal server error"}`, http.StatusInternalServerError)
		return
	}
	writeHours(w, h.logger, providerID, week)
}

// PutHours handles PUT /providers/me/hours. The body replaces the whole week.
func (h *Handler) PutHours(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "missing caller identity"}`, http.StatusUnauthorized)
		return
	}
	if !actor.IsProvider() {
		http.Error(w, `{"error": "only providers set working hours"}`, http.StatusForbidden)
		return
	}

	var week scheduling.WeeklyHours
	if err := json.NewDecoder(r.Body).Decode(&week); err != nil {
		http.Error(w, `{"error": "invalid JSON body"}`, http.StatusBadRequest)
		return
	}
	if err := h.store.Set(r.Context(), actor.ID, week); err != nil {
		if errors.Is(err, scheduling.ErrInvalidHours) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		h.logger.Error("failed to save working hours", "provider_id", actor.ID, "error", err)
		http.Error(w, `{"error": "failed to save hours"}`, http.StatusInternalServerError)
		return
	}

	h.logger.Info("working hours updated", "provider_id", actor.ID)
	writeHours(w, h.logger, actor.ID, week)
}

var weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

func writeHours(w http.ResponseWriter, logger *logging.Logger, providerID string, week scheduling.WeeklyHours) {
	resp := HoursResponse{ProviderID: providerID, Hours: week, Effective: make(map[string]scheduling.DayHours, 7)}
	for _, day := range weekdays {
		resp.Effective[strings.ToLower(day.String())] = week.ForDay(day)
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logger.Error("failed to encode working hours", "provider_id", providerID, "error", err)
	}
}
