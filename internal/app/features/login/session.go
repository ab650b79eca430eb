package login

import (
	"context"
	"errors"
	"net/http"
	"time"

	identitystore "github.com/dalemusser/testimonyhub/internal/app/store/identities"
	"github.com/dalemusser/testimonyhub/internal/app/system/auth"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/normalize"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"github.com/dalemusser/testimonyhub/internal/domain/models"
	"go.uber.org/zap"
)

const msgBadCredentials = "invalid credentials"

// HandlePhoneLogin handles POST /api/auth/phone-login.
func (h *Handler) HandlePhoneLogin(w http.ResponseWriter, r *http.Request) {
	var req phoneLoginRequest
	if err := httpjson.Decode(w, r, &req, 0); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	normalized := h.Phones.Normalize(req.PhoneNumber)
	if normalized == "" {
		httpjson.Error(w, http.StatusBadRequest, "phoneNumber is required")
		return
	}
	if !h.allow(w, r, normalized) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ident, err := h.Identities.GetByPhone(ctx, normalized)
	if errors.Is(err, identitystore.ErrNotFound) {
		httpjson.Error(w, http.StatusNotFound, "no account for this phone number")
		return
	}
	if err != nil {
		h.Log.Error("identity lookup failed", zap.Error(err), zap.String("phone", normalized))
		httpjson.Unavailable(w)
		return
	}
	if ident.Disabled {
		httpjson.Error(w, http.StatusForbidden, "account disabled")
		return
	}
	if h.RequirePassword || req.Password != "" {
		if err := identitystore.CheckPassword(ident, req.Password); err != nil {
			h.Log.Info("phone login rejected", zap.String("phone", normalized))
			httpjson.Error(w, http.StatusUnauthorized, msgBadCredentials)
			return
		}
	}

	isAdmin, err := h.Admins.IsAdmin(ctx, ident.ID.Hex())
	if err != nil {
		// The flag is informational here; admin routes re-check membership.
		h.Log.Warn("admin membership lookup failed", zap.Error(err), zap.String("user_id", ident.ID.Hex()))
	}
	h.startSession(w, r, ident, isAdmin, normalized)
}

// HandleAdminLogin handles POST /api/auth/admin-login. The caller identifies
// by email or phone and must hold an admin membership.
func (h *Handler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := httpjson.Decode(w, r, &req, 0); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	email := normalize.Email(req.Email)
	normalized := h.Phones.Normalize(req.Phone)
	if email == "" && normalized == "" {
		httpjson.Error(w, http.StatusBadRequest, "email or phone is required")
		return
	}
	if req.Password == "" {
		httpjson.Error(w, http.StatusBadRequest, "password is required")
		return
	}
	account := email
	if account == "" {
		account = normalized
	}
	if !h.allow(w, r, account) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	var ident *models.Identity
	var err error
	if email != "" {
		ident, err = h.Identities.GetByEmail(ctx, email)
	} else {
		ident, err = h.Identities.GetByPhone(ctx, normalized)
	}
	if err != nil && !errors.Is(err, identitystore.ErrNotFound) {
		h.Log.Error("identity lookup failed", zap.Error(err), zap.String("account", account))
		httpjson.Unavailable(w)
		return
	}
	// Unknown accounts and wrong passwords answer alike.
	if err != nil || ident.Disabled || identitystore.CheckPassword(ident, req.Password) != nil {
		h.Log.Info("admin login rejected", zap.String("account", account))
		httpjson.Error(w, http.StatusUnauthorized, msgBadCredentials)
		return
	}

	isAdmin, err := h.Admins.IsAdmin(ctx, ident.ID.Hex())
	if err != nil {
		h.Log.Error("admin membership lookup failed", zap.Error(err), zap.String("user_id", ident.ID.Hex()))
		httpjson.Unavailable(w)
		return
	}
	if !isAdmin {
		httpjson.Error(w, http.StatusForbidden, "admin access required")
		return
	}
	h.startSession(w, r, ident, true, account)
}

// allow applies the login limiter and answers 429 when it refuses.
func (h *Handler) allow(w http.ResponseWriter, r *http.Request, account string) bool {
	if h.Limiter == nil {
		return true
	}
	ok, reason := h.Limiter.Check(r, account)
	if !ok {
		h.Log.Warn("login rate limited", zap.String("account", account))
		httpjson.Error(w, http.StatusTooManyRequests, reason)
	}
	return ok
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, ident *models.Identity, isAdmin bool, account string) {
	token, exp, err := h.SessionMgr.Tokens().Issue(auth.Identity{
		UserID: ident.ID.Hex(),
		Phone:  ident.Phone,
		Email:  ident.Email,
	})
	if err != nil {
		h.Log.Error("issue session token failed", zap.Error(err), zap.String("user_id", ident.ID.Hex()))
		httpjson.Error(w, http.StatusInternalServerError, httpjson.MsgInternal)
		return
	}
	if err := h.SessionMgr.Login(w, r, token); err != nil {
		// Bearer clients still get the token in the body.
		h.Log.Warn("save session cookie failed", zap.Error(err), zap.String("user_id", ident.ID.Hex()))
	}
	if h.Limiter != nil {
		h.Limiter.ResetAccount(r.Context(), account)
	}

	h.Log.Info("user signed in", zap.String("user_id", ident.ID.Hex()), zap.Bool("admin", isAdmin))
	httpjson.OK(w, sessionResponse{
		Token:     token,
		ExpiresAt: exp.UTC().Format(time.RFC3339),
		User: userView{
			ID:      ident.ID.Hex(),
			Phone:   ident.Phone,
			Email:   ident.Email,
			IsAdmin: isAdmin,
		},
	})
}

// HandleLogout handles POST /api/auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.Logout(w, r); err != nil {
		h.Log.Warn("clear session cookie failed", zap.Error(err))
	}
	httpjson.OK(w, map[string]bool{"ok": true})
}

// ServeMe handles GET /api/auth/me.
func (h *Handler) ServeMe(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	isAdmin, err := h.Admins.IsAdmin(ctx, u.ID)
	if err != nil {
		h.Log.Error("admin membership lookup failed", zap.Error(err), zap.String("user_id", u.ID))
		httpjson.Unavailable(w)
		return
	}
	httpjson.OK(w, userView{
		ID:      u.ID,
		Phone:   u.Phone,
		Email:   u.Email,
		IsAdmin: isAdmin,
	})
}
