package adminusers

import (
	"context"
	"net/http"

	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/paging"
	"github.com/dalemusser/testimonyhub/internal/app/system/search"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"go.uber.org/zap"
)

type listResponse struct {
	Items []userRow   `json:"items"`
	Page  paging.Page `json:"page"`
}

// ServeList handles GET /api/admin/users?q=&start=&limit=.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		h.Log.Error("list users failed", zap.Error(err))
		httpjson.Unavailable(w)
		return
	}
	adminIDs, err := h.Admins.IDs(ctx)
	if err != nil {
		h.Log.Error("list admin ids failed", zap.Error(err))
		httpjson.Unavailable(w)
		return
	}

	rows := make([]userRow, 0, len(users))
	for _, u := range users {
		rows = append(rows, rowFor(u, adminIDs[u.ID.Hex()]))
	}
	rows = search.Filter(rows, r.URL.Query().Get("q"), func(u userRow) []string {
		return []string{u.FirstName, u.LastName, u.Email, u.Phone, u.ID}
	})
	items, page := paging.Slice(rows, paging.ParseStart(r), paging.ParseLimit(r, paging.PageSize))
	httpjson.OK(w, listResponse{Items: items, Page: page})
}
