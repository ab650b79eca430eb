// internal/app/features/adminusers/handler.go
package adminusers

import (
	adminstore "github.com/dalemusser/testimonyhub/internal/app/store/admins"
	userstore "github.com/dalemusser/testimonyhub/internal/app/store/users"
	"github.com/dalemusser/testimonyhub/internal/app/system/accounts"
	"github.com/dalemusser/testimonyhub/internal/app/system/auditlog"
	"github.com/dalemusser/testimonyhub/internal/app/system/submission"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Handler serves account administration.
type Handler struct {
	Accounts *accounts.Service
	Users    *userstore.Store
	Admins   *adminstore.Store
	AuditLog *auditlog.Logger
	Validate *validator.Validate
	Log      *zap.Logger
}

func NewHandler(acc *accounts.Service, users *userstore.Store, admins *adminstore.Store, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		Accounts: acc,
		Users:    users,
		Admins:   admins,
		AuditLog: audit,
		Validate: submission.NewValidator(),
		Log:      logger,
	}
}
