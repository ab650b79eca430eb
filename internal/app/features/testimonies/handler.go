// internal/app/features/testimonies/handler.go
package testimonies

import (
	poststore "github.com/dalemusser/testimonyhub/internal/app/store/posts"
	"github.com/dalemusser/testimonyhub/internal/app/system/auth"
	"github.com/dalemusser/testimonyhub/internal/app/system/moderation"
	"github.com/dalemusser/testimonyhub/internal/app/system/phone"
	"github.com/dalemusser/testimonyhub/internal/app/system/submission"
	"go.uber.org/zap"
)

// DefaultMaxUpload bounds a multipart testimony submission.
const DefaultMaxUpload = 50 << 20

// Handler serves the public feed, submissions and single-post views.
type Handler struct {
	Posts      *poststore.Store
	Moderation *moderation.Service
	Builder    *submission.Builder
	Admins     auth.AdminChecker
	Phones     phone.Normalizer
	Log        *zap.Logger

	MaxUploadBytes int64
}

// NewHandler creates a testimonies Handler. maxUpload <= 0 selects DefaultMaxUpload.
func NewHandler(posts *poststore.Store, mod *moderation.Service, builder *submission.Builder, admins auth.AdminChecker, phones phone.Normalizer, maxUpload int64, logger *zap.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{
		Posts:          posts,
		Moderation:     mod,
		Builder:        builder,
		Admins:         admins,
		Phones:         phones,
		Log:            logger,
		MaxUploadBytes: maxUpload,
	}
}
