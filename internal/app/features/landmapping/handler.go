// internal/app/features/landmapping/handler.go
package landmapping

import (
	"context"
	"net/http"

	modfeature "github.com/dalemusser/testimonyhub/internal/app/features/moderation"
	"github.com/dalemusser/testimonyhub/internal/app/features/shared/postresp"
	poststore "github.com/dalemusser/testimonyhub/internal/app/store/posts"
	"github.com/dalemusser/testimonyhub/internal/app/system/authz"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/moderation"
	"github.com/dalemusser/testimonyhub/internal/app/system/paging"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"go.uber.org/zap"
)

// Handler serves the administrator's land claim records.
type Handler struct {
	Posts      *poststore.Store
	Moderation *moderation.Service
	Log        *zap.Logger
}

func NewHandler(posts *poststore.Store, mod *moderation.Service, logger *zap.Logger) *Handler {
	return &Handler{Posts: posts, Moderation: mod, Log: logger}
}

// ServeList handles GET /api/admin/landmapping?status=&q=&start=&limit=.
// Every status is listed unless status narrows it.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	statuses, ok := modfeature.StatusFilter(r, "")
	if !ok {
		httpjson.Error(w, http.StatusBadRequest, "status must be one of pending, approved, rejected, all")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	docs, err := h.Posts.List(ctx, poststore.ListFilter{
		Types:    []models.PostType{models.PostCoordinates},
		Statuses: statuses,
	})
	if err != nil {
		h.Log.Error("list land claims failed", zap.Error(err))
		httpjson.Unavailable(w)
		return
	}
	httpjson.OK(w, postresp.Page(r, docs, paging.PageSize))
}

// HandleDelete handles DELETE /api/admin/landmapping/{id}. Testimonies are
// answered as not found.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	a, ok := authz.Actor(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return
	}
	id, ok := postresp.ID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Moderation.DeleteLandMapping(ctx, a, id); err != nil {
		postresp.WriteError(w, h.Log, "delete land claim", err)
		return
	}
	h.Log.Info("land claim deleted", zap.String("post_id", id.Hex()), zap.String("admin_id", a.UID))
	httpjson.OK(w, map[string]string{"deleted": id.Hex()})
}
