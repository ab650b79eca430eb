package moderation

import (
	"context"
	"net/http"

	"github.com/dalemusser/testimonyhub/internal/app/features/shared/postresp"
	poststore "github.com/dalemusser/testimonyhub/internal/app/store/posts"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/normalize"
	"github.com/dalemusser/testimonyhub/internal/app/system/paging"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"go.uber.org/zap"
)

// StatusFilter reads ?status=, defaulting to def. "all" yields no filter.
// ok is false for an unknown status.
func StatusFilter(r *http.Request, def models.PostStatus) (statuses []models.PostStatus, ok bool) {
	s := normalize.Keyword(r.URL.Query().Get("status"))
	switch {
	case s == "":
		if def == "" {
			return nil, true
		}
		return []models.PostStatus{def}, true
	case s == "all":
		return nil, true
	case models.PostStatus(s).Valid():
		return []models.PostStatus{models.PostStatus(s)}, true
	}
	return nil, false
}

// ServeList handles GET /api/admin/posts?status=&q=&start=&limit=.
// Only testimonies are listed; land claims have their own surface.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	statuses, ok := StatusFilter(r, models.StatusPending)
	if !ok {
		httpjson.Error(w, http.StatusBadRequest, "status must be one of pending, approved, rejected, all")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	docs, err := h.Posts.List(ctx, poststore.ListFilter{
		Types:    models.NarrativeTypes,
		Statuses: statuses,
	})
	if err != nil {
		h.Log.Error("list posts for review failed", zap.Error(err))
		httpjson.Unavailable(w)
		return
	}
	httpjson.OK(w, postresp.Page(r, docs, paging.PageSize))
}

// ServeGet handles GET /api/admin/posts/{id}. Any status is visible.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, ok := postresp.ID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Moderation.Get(ctx, id)
	if err != nil {
		postresp.WriteError(w, h.Log, "load post", err)
		return
	}
	httpjson.OK(w, postresp.View(p))
}
