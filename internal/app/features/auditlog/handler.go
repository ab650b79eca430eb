// internal/app/features/auditlog/handler.go
package auditlog

import (
	"github.com/dalemusser/testimonyhub/internal/app/store/audit"
	"go.uber.org/zap"
)

// Handler serves the audit log browser.
type Handler struct {
	Entries *audit.Store
	Log     *zap.Logger
}

// NewHandler constructs an audit log Handler.
func NewHandler(entries *audit.Store, logger *zap.Logger) *Handler {
	return &Handler{
		Entries: entries,
		Log:     logger,
	}
}
