package permissions

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/gajiflow/gajiflow/internal/shared"
)

// Middleware wires authorization gates for HTTP handlers. It is an edge
// convenience only; services re-check with Authorize before mutating, which
// is the actual security boundary.
type Middleware struct {
	Service *Service
	Logger  *slog.Logger
}

// RequireCapability ensures the actor holds the capability on the resource
// for the firm named in the {firmID} route parameter.
func (m Middleware) RequireCapability(resource Resource, capability Capability) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			firmID, err := uuid.Parse(chi.URLParam(r, "firmID"))
			if err != nil {
				http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
				return
			}
			allowed, err := m.Service.Authorize(r.Context(), firmID, actor.Roles, resource, capability)
			if err != nil {
				if m.Logger != nil {
					m.Logger.Error("require capability", slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
				return
			}
			if !allowed {
				http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
