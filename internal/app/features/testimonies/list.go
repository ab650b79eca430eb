package testimonies

import (
	"context"
	"net/http"

	"github.com/dalemusser/testimonyhub/internal/app/features/shared/postresp"
	poststore "github.com/dalemusser/testimonyhub/internal/app/store/posts"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/paging"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"go.uber.org/zap"
)

// ServeList handles GET /api/posts: approved testimonies, newest first.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	docs, err := h.Posts.List(ctx, poststore.ListFilter{
		Types:    models.NarrativeTypes,
		Statuses: []models.PostStatus{models.StatusApproved},
	})
	if err != nil {
		h.Log.Error("list approved posts failed", zap.Error(err))
		httpjson.Unavailable(w)
		return
	}
	httpjson.OK(w, postresp.Page(r, docs, paging.PageSize))
}
