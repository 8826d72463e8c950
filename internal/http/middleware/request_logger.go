package middleware

import (
	"net/http"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/appointment-scheduler/internal/identity"
	"github.com/wolfman30/appointment-scheduler/pkg/logging"
)

// RequestLogger emits one structured line per completed request. It reads
// the request id set by chi's RequestID and the actor set by ActorJWT, so it
// belongs inside both.
func RequestLogger(logger *logging.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			args := []any{
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			}
			if reqID := chimw.GetReqID(r.Context()); reqID != "" {
				args = append(args, "request_id", reqID)
			}
			if actor, ok := identity.ActorFromContext(r.Context()); ok {
				args = append(args, "actor_id", actor.ID, "actor_role", actor.Role)
			}
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				logger.Error("request completed", args...)
			case ww.Status() >= http.StatusBadRequest:
				logger.Warn("request completed", args...)
			default:
				logger.Info("request completed", args...)
			}
		})
	}
}
