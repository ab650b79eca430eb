// internal/app/features/auditlog/list.go
package auditlog

import (
	"context"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/store/audit"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/normalize"
	"github.com/dalemusser/testimonyhub/internal/app/system/paging"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const dateLayout = "2006-01-02"

type pageInfo struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	Total      int64 `json:"total"`
	TotalPages int64 `json:"totalPages"`
	HasPrev    bool  `json:"hasPrev"`
	HasNext    bool  `json:"hasNext"`
}

type listResponse struct {
	Items   []audit.Entry `json:"items"`
	Page    pageInfo      `json:"page"`
	Actions []string      `json:"actions"`
}

// ServeList handles GET /api/admin/audit. Entries come newest first; q
// matches action, target type and target id; action, start_date and
// end_date (YYYY-MM-DD, inclusive) narrow the result.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	f, page, ok := parseFilter(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
	defer cancel()

	var (
		entries []audit.Entry
		total   int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		entries, err = h.Entries.Query(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		total, err = h.Entries.Count(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		h.Log.Error("audit log query failed", zap.Error(err))
		httpjson.Unavailable(w)
		return
	}

	size := int64(paging.AuditPageSize)
	totalPages := (total + size - 1) / size
	httpjson.OK(w, listResponse{
		Items: entries,
		Page: pageInfo{
			Page:       page,
			PageSize:   paging.AuditPageSize,
			Total:      total,
			TotalPages: totalPages,
			HasPrev:    page > 1,
			HasNext:    int64(page) < totalPages,
		},
		Actions: audit.Actions,
	})
}

func parseFilter(w http.ResponseWriter, r *http.Request) (audit.QueryFilter, int, bool) {
	page := 1
	if p, err := strconv.Atoi(query.Get(r, "page")); err == nil && p > 0 {
		page = p
	}
	f := audit.QueryFilter{
		Search: normalize.QueryParam(query.Get(r, "q")),
		Limit:  paging.AuditPageSize,
		Offset: int64((page - 1) * paging.AuditPageSize),
	}

	if action := normalize.Keyword(query.Get(r, "action")); action != "" {
		if !slices.Contains(audit.Actions, action) {
			httpjson.Error(w, http.StatusBadRequest, "unknown action")
			return f, 0, false
		}
		f.Action = action
	}
	if s := strings.TrimSpace(query.Get(r, "start_date")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, "start_date: expected YYYY-MM-DD")
			return f, 0, false
		}
		f.StartTime = &t
	}
	if s := strings.TrimSpace(query.Get(r, "end_date")); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			httpjson.Error(w, http.StatusBadRequest, "end_date: expected YYYY-MM-DD")
			return f, 0, false
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		f.EndTime = &end
	}
	return f, page, true
}
