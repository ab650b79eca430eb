// internal/app/features/adminusers/routes.go
package adminusers

import (
	"github.com/dalemusser/testimonyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/admin/users.
func Routes(h *Handler, sm *auth.SessionManager, admins auth.AdminChecker) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAdmin(admins))
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	r.Post("/reset-password", h.HandleResetPassword)
	r.Delete("/{id}", h.HandleDelete)
	r.Post("/{id}/promote", h.HandlePromote)
	r.Post("/{id}/demote", h.HandleDemote)
	return r
}
