// internal/app/features/moderation/handler.go
package moderation

import (
	poststore "github.com/dalemusser/testimonyhub/internal/app/store/posts"
	"github.com/dalemusser/testimonyhub/internal/app/system/moderation"
	"go.uber.org/zap"
)

// Handler serves the administrator's testimony review queue.
type Handler struct {
	Posts      *poststore.Store
	Moderation *moderation.Service
	Log        *zap.Logger
}

func NewHandler(posts *poststore.Store, mod *moderation.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Posts:      posts,
		Moderation: mod,
		Log:        logger,
	}
}
