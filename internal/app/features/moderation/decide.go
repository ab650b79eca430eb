package moderation

import (
	"context"
	"net/http"

	"github.com/dalemusser/testimonyhub/internal/app/features/shared/postresp"
	"github.com/dalemusser/testimonyhub/internal/app/store/audit"
	"github.com/dalemusser/testimonyhub/internal/app/system/authz"
	"github.com/dalemusser/testimonyhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type rejectRequest struct {
	Reason string `json:"reason"`
}

func actor(w http.ResponseWriter, r *http.Request) (audit.Actor, bool) {
	a, ok := authz.Actor(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
	}
	return a, ok
}

// HandleApprove handles POST /api/admin/posts/{id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := postresp.ID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Moderation.Approve(ctx, a, id)
	if err != nil {
		postresp.WriteError(w, h.Log, "approve post", err)
		return
	}
	h.Log.Info("post approved", zap.String("post_id", id.Hex()), zap.String("admin_id", a.UID))
	httpjson.OK(w, postresp.View(p))
}

// HandleReject handles POST /api/admin/posts/{id}/reject with an optional
// {"reason": "..."} body.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := postresp.ID(w, r)
	if !ok {
		return
	}
	var req rejectRequest
	if r.ContentLength != 0 {
		if err := httpjson.Decode(w, r, &req, 0); err != nil {
			httpjson.Error(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := h.Moderation.Reject(ctx, a, id, htmlsanitize.PlainText(req.Reason))
	if err != nil {
		postresp.WriteError(w, h.Log, "reject post", err)
		return
	}
	h.Log.Info("post rejected", zap.String("post_id", id.Hex()), zap.String("admin_id", a.UID))
	httpjson.OK(w, postresp.View(p))
}

// HandleDelete handles DELETE /api/admin/posts/{id}. Posts in any state
// can be deleted.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	a, ok := actor(w, r)
	if !ok {
		return
	}
	id, ok := postresp.ID(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Moderation.DeleteAsAdmin(ctx, a, id); err != nil {
		postresp.WriteError(w, h.Log, "delete post", err)
		return
	}
	h.Log.Info("post deleted by admin", zap.String("post_id", id.Hex()), zap.String("admin_id", a.UID))
	httpjson.OK(w, map[string]string{"deleted": id.Hex()})
}
