package testimonies

import (
	"context"
	"net/http"

	"github.com/dalemusser/testimonyhub/internal/app/features/shared/postresp"
	"github.com/dalemusser/testimonyhub/internal/app/policy/postpolicy"
	"github.com/dalemusser/testimonyhub/internal/app/system/authz"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/normalize"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// ServeGet handles GET /api/posts/{id}.
//
// Approved posts are public. Otherwise the viewer must own the post, either
// by session or by the userId/userPhone query parameters sent by clients
// that hold no session, or be an admin. Denials answer 404 like absences.
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

	viewer := postpolicy.Viewer{
		Session: authz.Identity(r),
		Claimed: claimedIdentity(r),
	}
	if viewer.Session != nil && h.Admins != nil {
		isAdmin, err := h.Admins.IsAdmin(ctx, viewer.Session.ID)
		if err != nil {
			h.Log.Warn("admin membership lookup failed", zap.Error(err), zap.String("user_id", viewer.Session.ID))
		}
		viewer.IsAdmin = isAdmin
	}

	d := postpolicy.Decide(p, viewer, h.Phones)
	if !d.Allowed {
		h.Log.Debug("post view denied", zap.String("post_id", id.Hex()))
		httpjson.NotFound(w)
		return
	}
	h.Log.Debug("post view allowed", zap.String("post_id", id.Hex()), zap.String("rule", string(d.Rule)))
	httpjson.OK(w, postresp.View(p))
}

// claimedIdentity reads the unverified owner claim from the query string.
func claimedIdentity(r *http.Request) *postpolicy.Identity {
	q := r.URL.Query()
	uid := normalize.QueryParam(q.Get("userId"))
	ph := normalize.QueryParam(q.Get("userPhone"))
	if uid == "" && ph == "" {
		return nil
	}
	return &postpolicy.Identity{ID: uid, Phone: ph}
}
