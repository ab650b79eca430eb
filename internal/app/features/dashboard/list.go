package dashboard

import (
	"context"
	"net/http"

	"github.com/dalemusser/testimonyhub/internal/app/features/shared/postresp"
	poststore "github.com/dalemusser/testimonyhub/internal/app/store/posts"
	"github.com/dalemusser/testimonyhub/internal/app/system/authz"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/normalize"
	"github.com/dalemusser/testimonyhub/internal/app/system/paging"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"go.uber.org/zap"
)

// Tabs of the dashboard. TabAll shows every status.
const (
	TabAll      = "all"
	TabApproved = "approved"
	TabPending  = "pending"
	TabRejected = "rejected"
)

// tabCounts is the number of the owner's posts per tab, before searching.
type tabCounts struct {
	All      int `json:"all"`
	Approved int `json:"approved"`
	Pending  int `json:"pending"`
	Rejected int `json:"rejected"`
}

type listResponse struct {
	postresp.List
	Tab    string    `json:"tab"`
	Counts tabCounts `json:"counts"`
}

// ServeList handles GET /api/me/posts?tab=&q=&start=&limit=.
//
// Posts are matched by the session user id or by any stored spelling of the
// session phone, so records written before accounts had ids still appear.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	uid, userPhone, ok := authz.UserCtx(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return
	}
	tab := normalize.Keyword(r.URL.Query().Get("tab"))
	if tab == "" {
		tab = TabAll
	}
	switch tab {
	case TabAll, TabApproved, TabPending, TabRejected:
	default:
		httpjson.Error(w, http.StatusBadRequest, "tab must be one of all, approved, pending, rejected")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	docs, err := h.Posts.List(ctx, poststore.ListFilter{
		Owner: &poststore.OwnerMatch{UserID: uid.Hex(), Phones: h.Phones.Variants(userPhone)},
	})
	if err != nil {
		h.Log.Error("list own posts failed", zap.Error(err), zap.String("user_id", uid.Hex()))
		httpjson.Unavailable(w)
		return
	}

	var counts tabCounts
	shown := make([]models.PostDoc, 0, len(docs))
	for _, d := range docs {
		counts.All++
		switch d.Status {
		case models.StatusApproved:
			counts.Approved++
		case models.StatusPending:
			counts.Pending++
		case models.StatusRejected:
			counts.Rejected++
		}
		if tab == TabAll || string(d.Status) == tab {
			shown = append(shown, d)
		}
	}

	httpjson.OK(w, listResponse{
		List:   postresp.Page(r, shown, paging.PageSize),
		Tab:    tab,
		Counts: counts,
	})
}
