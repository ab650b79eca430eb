// internal/app/features/reports/handler.go
package reports

import (
	"time"

	poststore "github.com/dalemusser/testimonyhub/internal/app/store/posts"
	userstore "github.com/dalemusser/testimonyhub/internal/app/store/users"
	"go.uber.org/zap"
)

// Handler serves the admin reports summary.
type Handler struct {
	Posts *poststore.Store
	Users *userstore.Store
	Log   *zap.Logger

	now func() time.Time
}

// NewHandler constructs a reports Handler.
func NewHandler(posts *poststore.Store, users *userstore.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Posts: posts,
		Users: users,
		Log:   logger,
		now:   time.Now,
	}
}

// WithClock replaces the clock used to anchor date ranges.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}
