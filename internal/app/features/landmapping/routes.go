// internal/app/features/landmapping/routes.go
package landmapping

import (
	"github.com/dalemusser/testimonyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/admin/landmapping.
func Routes(h *Handler, sm *auth.SessionManager, admins auth.AdminChecker) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAdmin(admins))
	r.Get("/", h.ServeList)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
