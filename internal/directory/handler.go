package directory

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/appointment-scheduler/internal/identity"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// Handler serves party profiles.
type Handler struct {
	repo   Repository
	logger *logging.Logger
}

// NewHandler creates a new directory handler
func NewHandler(repo Repository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{repo: repo, logger: logger}
}

// PutMe handles PUT /me, registering the caller's display record.
func (h *Handler) PutMe(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "missing caller identity", http.StatusUnauthorized)
		return
	}

	var req ProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := req.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	party, err := h.repo.Upsert(r.Context(), &Party{ID: actor.ID, Name: req.Name, Email: req.Email, Role: actor.Role})
	if err != nil {
		h.logger.Error("failed to save party", "error", err, "party_id", actor.ID)
		http.Error(w, "failed to save profile", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(party)
}

// GetParty handles GET /parties/{partyID}.
func (h *Handler) GetParty(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "partyID")
	party, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPartyNotFound) {
			http.Error(w, "party not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load party", "error", err, "party_id", id)
		http.Error(w, "failed to load party", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(party)
}
