// internal/app/features/elearning/routes.go
package elearning

import (
	"github.com/dalemusser/testimonyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the public catalogue under /api/elearning.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeList)
	r.Get("/{id}", h.ServeGet)
	return r
}

// AdminRoutes mounts under /api/admin/elearning.
func AdminRoutes(h *Handler, sm *auth.SessionManager, admins auth.AdminChecker) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAdmin(admins))
	r.Post("/", h.HandleCreate)
	r.Put("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
