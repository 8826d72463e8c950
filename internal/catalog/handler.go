package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/appointment-scheduler/internal/identity"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// Handler exposes a provider's service menu.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if repo == nil {
		panic("catalog: repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// List handles GET /providers/{providerID}/services.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	providerID := chi.URLParam(r, "providerID")
	services, err := h.repo.ListByProvider(r.Context(), providerID)
	if err != nil {
		h.logger.Error("failed to list services", "error", err, "provider_id", providerID)
		jsonError(w, "failed to list services", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": services})
}

// Create handles POST /providers/me/services.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := providerActor(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	svc, err := req.Service(actor.ID)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	stored, err := h.repo.Create(r.Context(), svc)
	if err != nil {
		h.logger.Error("failed to create service", "error", err, "provider_id", actor.ID)
		jsonError(w, "failed to create service", http.StatusInternalServerError)
		return
	}
	h.logger.Info("service created", "service_id", stored.ID, "provider_id", actor.ID)
	writeJSON(w, http.StatusCreated, stored)
}

// Deactivate handles DELETE /providers/me/services/{serviceID}.
func (h *Handler) Deactivate(w http.ResponseWriter, r *http.Request) {
	actor, ok := providerActor(w, r)
	if !ok {
		return
	}
	serviceID := chi.URLParam(r, "serviceID")
	if err := h.repo.Deactivate(r.Context(), actor.ID, serviceID); err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			jsonError(w, "service not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to deactivate service", "error", err, "service_id", serviceID)
		jsonError(w, "failed to deactivate service", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func providerActor(w http.ResponseWriter, r *http.Request) (identity.Actor, bool) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		jsonError(w, "missing caller identity", http.StatusUnauthorized)
		return identity.Actor{}, false
	}
	if !actor.IsProvider() {
		jsonError(w, "only providers manage services", http.StatusForbidden)
		return identity.Actor{}, false
	}
	return actor, true
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	writeJSON(w, status, map[string]string{"error": msg})
}
