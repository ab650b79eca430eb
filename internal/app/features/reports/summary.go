// internal/app/features/reports/summary.go
package reports

import (
	"net/http"
	"time"

	poststore "github.com/dalemusser/testimonyhub/internal/app/store/posts"
	userstore "github.com/dalemusser/testimonyhub/internal/app/store/users"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/normalize"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// growthMonths is how far back the user growth series reaches, current month included.
const growthMonths = 12

var rangeDays = map[string]int{
	"week":    7,
	"month":   30,
	"quarter": 90,
	"year":    365,
}

type totals struct {
	Posts       int64                       `json:"posts"`
	ByStatus    map[models.PostStatus]int64 `json:"byStatus"`
	ByType      map[models.PostType]int64   `json:"byType"`
	Narratives  map[models.PostStatus]int64 `json:"narratives"`
	Coordinates int64                       `json:"coordinates"`
	Users       int64                       `json:"users"`
}

type monthGrowth struct {
	Month      string `json:"month"`
	NewUsers   int64  `json:"newUsers"`
	TotalUsers int64  `json:"totalUsers"`
}

type summaryResponse struct {
	Range      string               `json:"range"`
	Totals     totals               `json:"totals"`
	Daily      []poststore.DayCount `json:"daily"`
	UserGrowth []monthGrowth        `json:"userGrowth"`
}

// ServeSummary handles GET /api/admin/reports?range=week|month|quarter|year.
func (h *Handler) ServeSummary(w http.ResponseWriter, r *http.Request) {
	rng := normalize.Keyword(query.Get(r, "range"))
	if rng == "" {
		rng = "week"
	}
	days, ok := rangeDays[rng]
	if !ok {
		httpjson.Error(w, http.StatusBadRequest, "range must be week, month, quarter or year")
		return
	}

	now := h.now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	dayStart := today.AddDate(0, 0, -(days - 1))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(growthMonths - 1), 0)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Long(), h.Log, "reports summary")
	defer cancel()

	var (
		t      totals
		daily  []poststore.DayCount
		growth []userstore.MonthCount
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		t.ByStatus, err = h.Posts.CountByStatus(gctx)
		return err
	})
	g.Go(func() (err error) {
		t.Narratives, err = h.Posts.CountByStatus(gctx, models.NarrativeTypes...)
		return err
	})
	g.Go(func() (err error) {
		t.ByType, err = h.Posts.CountByType(gctx)
		return err
	})
	g.Go(func() (err error) {
		t.Coordinates, err = h.Posts.Count(gctx, poststore.ListFilter{Types: []models.PostType{models.PostCoordinates}})
		return err
	})
	g.Go(func() (err error) {
		t.Users, err = h.Users.Count(gctx)
		return err
	})
	g.Go(func() (err error) {
		daily, err = h.Posts.DailyCounts(gctx, dayStart)
		return err
	})
	g.Go(func() (err error) {
		growth, err = h.Users.MonthlyGrowth(gctx, monthStart)
		return err
	})
	if err := g.Wait(); err != nil {
		h.Log.Error("reports summary failed", zap.Error(err), zap.String("range", rng))
		httpjson.Unavailable(w)
		return
	}

	for _, n := range t.ByType {
		t.Posts += n
	}
	httpjson.OK(w, summaryResponse{
		Range:      rng,
		Totals:     t,
		Daily:      fillDays(daily, dayStart, days),
		UserGrowth: fillMonths(growth, monthStart, t.Users),
	})
}

// fillDays returns one entry per day starting at start, zero where the
// store had nothing.
func fillDays(counts []poststore.DayCount, start time.Time, days int) []poststore.DayCount {
	byDay := make(map[string]int64, len(counts))
	for _, c := range counts {
		byDay[c.Day] = c.Count
	}
	out := make([]poststore.DayCount, days)
	for i := range out {
		d := start.AddDate(0, 0, i).Format("2006-01-02")
		out[i] = poststore.DayCount{Day: d, Count: byDay[d]}
	}
	return out
}

// fillMonths returns growthMonths entries from start. TotalUsers is the
// number of users at the end of each month, derived backwards from total.
func fillMonths(counts []userstore.MonthCount, start time.Time, total int64) []monthGrowth {
	byMonth := make(map[string]int64, len(counts))
	for _, c := range counts {
		byMonth[c.Month] = c.Count
	}
	out := make([]monthGrowth, growthMonths)
	for i := range out {
		m := start.AddDate(0, i, 0).Format("2006-01")
		out[i] = monthGrowth{Month: m, NewUsers: byMonth[m]}
	}
	running := total
	for i := len(out) - 1; i >= 0; i-- {
		out[i].TotalUsers = running
		running -= out[i].NewUsers
	}
	return out
}
