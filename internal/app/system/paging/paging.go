// internal/app/system/paging/paging.go
package paging

import (
	"net/http"
	"strconv"

	"github.com/dalemusser/waffle/pantry/query"
)

// PageSize is the default number of rows returned by paged lists.
const PageSize = 50

// AuditPageSize is the page size of the audit log browser.
const AuditPageSize = 20

// MaxLimit caps a caller-supplied limit.
const MaxLimit = 200

// ParseStart extracts the human-friendly "start" query parameter (1-based index).
// Returns 1 if not present or invalid.
func ParseStart(r *http.Request) int {
	s := query.Get(r, "start")
	if s == "" {
		return 1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// ParseLimit extracts the "limit" query parameter. Returns def when absent or
// invalid, and MaxLimit when larger.
func ParseLimit(r *http.Request, def int) int {
	s := query.Get(r, "limit")
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	if n > MaxLimit {
		return MaxLimit
	}
	return n
}

// Page is the paging envelope returned with list responses.
type Page struct {
	Start     int  `json:"start"`
	End       int  `json:"end"`
	Total     int  `json:"total"`
	HasPrev   bool `json:"hasPrev"`
	HasNext   bool `json:"hasNext"`
	PrevStart int  `json:"prevStart"`
	NextStart int  `json:"nextStart"`
}

// Slice returns the window of rows beginning at the 1-based start index
// together with its paging envelope.
func Slice[T any](rows []T, start, limit int) ([]T, Page) {
	if start < 1 {
		start = 1
	}
	if limit < 1 {
		limit = PageSize
	}
	total := len(rows)
	if start > total {
		return []T{}, Page{Total: total, HasPrev: total > 0, PrevStart: prevStart(start, limit), NextStart: start}
	}
	end := start - 1 + limit
	if end > total {
		end = total
	}
	return rows[start-1 : end], Page{
		Start:     start,
		End:       end,
		Total:     total,
		HasPrev:   start > 1,
		HasNext:   end < total,
		PrevStart: prevStart(start, limit),
		NextStart: end + 1,
	}
}

func prevStart(start, limit int) int {
	p := start - limit
	if p < 1 {
		p = 1
	}
	return p
}
