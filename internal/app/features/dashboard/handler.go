// internal/app/features/dashboard/handler.go
package dashboard

import (
	poststore "github.com/dalemusser/testimonyhub/internal/app/store/posts"
	"github.com/dalemusser/testimonyhub/internal/app/system/moderation"
	"github.com/dalemusser/testimonyhub/internal/app/system/phone"
	"go.uber.org/zap"
)

// Handler serves a contributor's own posts.
type Handler struct {
	Posts      *poststore.Store
	Moderation *moderation.Service
	Phones     phone.Normalizer
	Log        *zap.Logger
}

func NewHandler(posts *poststore.Store, mod *moderation.Service, phones phone.Normalizer, logger *zap.Logger) *Handler {
	return &Handler{
		Posts:      posts,
		Moderation: mod,
		Phones:     phones,
		Log:        logger,
	}
}
