// internal/app/features/elearning/handler.go
package elearning

import (
	elearningstore "github.com/dalemusser/testimonyhub/internal/app/store/elearning"
	"github.com/dalemusser/testimonyhub/internal/app/system/auditlog"
	"github.com/dalemusser/testimonyhub/internal/app/system/blob"
	"go.uber.org/zap"
)

// DefaultMaxUpload bounds an e-learning media upload.
const DefaultMaxUpload = 100 << 20

// Handler serves the e-learning catalogue and its administration.
type Handler struct {
	Items    *elearningstore.Store
	Blobs    blob.Store
	AuditLog *auditlog.Logger
	Log      *zap.Logger

	MaxUploadBytes int64
}

// NewHandler creates an e-learning Handler. maxUpload <= 0 selects DefaultMaxUpload.
func NewHandler(items *elearningstore.Store, blobs blob.Store, audit *auditlog.Logger, maxUpload int64, logger *zap.Logger) *Handler {
	if maxUpload <= 0 {
		maxUpload = DefaultMaxUpload
	}
	return &Handler{
		Items:          items,
		Blobs:          blobs,
		AuditLog:       audit,
		Log:            logger,
		MaxUploadBytes: maxUpload,
	}
}
