/*
middleware.go - Caller identity resolution

PURPOSE:
  Binds the out-of-scope session layer to the core's opaque actor
  contract. The X-Actor-ID header names a worker; the middleware loads
  the record and injects core.Actor into the request context. A real
  deployment replaces this with its session/token verifier and keeps
  the same context contract.
*/
package api

import (
	"context"
	"net/http"

	"github.com/warp/worklog-engine/core"
)

type contextKey string

const actorKey contextKey = "actor"

// ActorHeader names the caller; resolved against the worker registry.
const ActorHeader = "X-Actor-ID"

// RequireActor resolves the caller identity or fails with 401.
func (h *Handler) RequireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(ActorHeader)
		if id == "" {
			writeError(w, http.StatusUnauthorized, "Missing "+ActorHeader+" header", nil)
			return
		}
		worker, err := h.Store.GetWorker(r.Context(), id)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to resolve caller", nil)
			return
		}
		if worker == nil || !core.ValidRole(worker.Role) {
			writeError(w, http.StatusUnauthorized, "Unknown caller", nil)
			return
		}
		ctx := context.WithValue(r.Context(), actorKey, worker.AsActor())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// actorFrom returns the resolved actor; the zero Actor when the
// middleware did not run.
func actorFrom(ctx context.Context) core.Actor {
	actor, _ := ctx.Value(actorKey).(core.Actor)
	return actor
}
