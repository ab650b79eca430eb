// internal/app/features/moderation/routes.go
package moderation

import (
	"github.com/dalemusser/testimonyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/admin/posts.
func Routes(h *Handler, sm *auth.SessionManager, admins auth.AdminChecker) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAdmin(admins))
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)
	r.Post("/{id}/approve", h.HandleApprove)
	r.Post("/{id}/reject", h.HandleReject)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
