package router

import (
	"encoding/json"
	"net/http"

	"github.com/wolfman30/appointment-scheduler/internal/identity"
)

// requireProvider guards the /providers/me subtree. Handlers repeat the
// check; this keeps customers from reaching them at all.
func requireProvider(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := identity.ActorFromContext(r.Context())
		switch {
		case !ok:
			roleError(w, "missing caller identity", http.StatusUnauthorized)
		case !actor.IsProvider():
			roleError(w, "only providers may manage their calendar", http.StatusForbidden)
		default:
			next.ServeHTTP(w, r)
		}
	})
}

func roleError(w http.ResponseWriter, msg string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
