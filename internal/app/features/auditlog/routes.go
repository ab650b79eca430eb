// internal/app/features/auditlog/routes.go
package auditlog

import (
	"github.com/dalemusser/testimonyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts under /api/admin/audit.
func Routes(h *Handler, sm *auth.SessionManager, admins auth.AdminChecker) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireAdmin(admins))
	r.Get("/", h.ServeList)
	return r
}
