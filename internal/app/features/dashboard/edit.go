package dashboard

import (
	"context"
	"net/http"

	"github.com/dalemusser/testimonyhub/internal/app/features/shared/postresp"
	"github.com/dalemusser/testimonyhub/internal/app/policy/postpolicy"
	"github.com/dalemusser/testimonyhub/internal/app/system/authz"
	"github.com/dalemusser/testimonyhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"go.uber.org/zap"
)

type editRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Content     *string `json:"content"`
}

func sanitized(s *string) *string {
	if s == nil {
		return nil
	}
	v := htmlsanitize.PlainText(*s)
	return &v
}

func (h *Handler) owner(w http.ResponseWriter, r *http.Request) (postpolicy.Identity, bool) {
	uid, userPhone, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return postpolicy.Identity{}, false
	}
	return postpolicy.Identity{ID: uid.Hex(), Phone: userPhone}, true
}

// HandleEdit handles PATCH /api/me/posts/{id}. Only the text of a pending
// narrative post can change.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	who, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := postresp.ID(w, r)
	if !ok {
		return
	}
	var req editRequest
	if err := httpjson.Decode(w, r, &req, 0); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Moderation.Edit(ctx, who, id, models.TextEdit{
		Title:       sanitized(req.Title),
		Description: sanitized(req.Description),
		Content:     sanitized(req.Content),
	})
	if err != nil {
		postresp.WriteError(w, h.Log, "edit post", err)
		return
	}
	h.Log.Info("post edited by owner", zap.String("post_id", id.Hex()), zap.String("user_id", who.ID))
	httpjson.OK(w, postresp.View(p))
}

// HandleDelete handles DELETE /api/me/posts/{id}. Owners may delete only
// while the post is pending.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	who, ok := h.owner(w, r)
	if !ok {
		return
	}
	id, ok := postresp.ID(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := h.Moderation.DeleteAsOwner(ctx, who, id); err != nil {
		postresp.WriteError(w, h.Log, "delete post", err)
		return
	}
	h.Log.Info("post deleted by owner", zap.String("post_id", id.Hex()), zap.String("user_id", who.ID))
	httpjson.OK(w, map[string]string{"deleted": id.Hex()})
}
