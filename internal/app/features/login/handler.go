// internal/app/features/login/handler.go
package login

// Terminology: User Identifiers
//   - UserID / userID / user_id: The MongoDB ObjectID (_id) shared by the identity, user and admin records
//   - phoneNumber: What the contributor types; it is normalized before any lookup

import (
	adminstore "github.com/dalemusser/testimonyhub/internal/app/store/admins"
	identitystore "github.com/dalemusser/testimonyhub/internal/app/store/identities"
	"github.com/dalemusser/testimonyhub/internal/app/system/auth"
	"github.com/dalemusser/testimonyhub/internal/app/system/phone"
	"github.com/dalemusser/testimonyhub/internal/app/system/ratelimit"
	"go.uber.org/zap"
)

// Handler serves the session endpoints.
type Handler struct {
	Identities *identitystore.Store
	Admins     *adminstore.Store
	SessionMgr *auth.SessionManager
	Limiter    *ratelimit.LoginLimiter // nil disables rate limiting
	Phones     phone.Normalizer
	Log        *zap.Logger

	// RequirePassword makes phone login check the password. Otherwise a
	// password is checked only when one is supplied.
	RequirePassword bool
}

// NewHandler creates a login Handler. limiter may be nil.
func NewHandler(idents *identitystore.Store, admins *adminstore.Store, sm *auth.SessionManager, limiter *ratelimit.LoginLimiter, phones phone.Normalizer, requirePassword bool, logger *zap.Logger) *Handler {
	return &Handler{
		Identities:      idents,
		Admins:          admins,
		SessionMgr:      sm,
		Limiter:         limiter,
		Phones:          phones,
		Log:             logger,
		RequirePassword: requirePassword,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Request / response bodies                                                    |
*─────────────────────────────────────────────────────────────────────────────*/

type phoneLoginRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Password    string `json:"password"`
}

type adminLoginRequest struct {
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type userView struct {
	ID      string `json:"id"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	IsAdmin bool   `json:"isAdmin"`
}

type sessionResponse struct {
	Token     string   `json:"token"`
	ExpiresAt string   `json:"expiresAt"`
	User      userView `json:"user"`
}
