package adminusers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	identitystore "github.com/dalemusser/testimonyhub/internal/app/store/identities"
	"github.com/dalemusser/testimonyhub/internal/app/system/accounts"
	"github.com/dalemusser/testimonyhub/internal/app/system/authz"
	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/dalemusser/testimonyhub/internal/app/system/submission"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// writeAccountError maps account errors to their HTTP status.
func (h *Handler) writeAccountError(w http.ResponseWriter, op string, err error) {
	var verr *submission.ValidationError
	switch {
	case errors.As(err, &verr):
		httpjson.Error(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, accounts.ErrInvalidPhone), errors.Is(err, identitystore.ErrWeakPassword):
		httpjson.Error(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, accounts.ErrNotFound), errors.Is(err, identitystore.ErrNotFound):
		httpjson.NotFound(w)
	case errors.Is(err, accounts.ErrDuplicate),
		errors.Is(err, accounts.ErrAlreadyAdmin),
		errors.Is(err, accounts.ErrNotAdmin):
		httpjson.Error(w, http.StatusConflict, err.Error())
	default:
		h.Log.Error(op+" failed", zap.Error(err))
		httpjson.Unavailable(w)
	}
}

// HandleCreate handles POST /api/admin/users and its alias
// POST /api/admin/create-user.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.Actor(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return
	}
	var req createRequest
	if err := httpjson.Decode(w, r, &req, 0); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Email = strings.TrimSpace(req.Email)
	if err := submission.Check(h.Validate, req); err != nil {
		h.writeAccountError(w, "validate user", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Accounts.Create(ctx, accounts.NewAccount{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
		IsAdmin:   req.IsAdmin,
		CreatedBy: actor.UID,
	})
	if err != nil {
		h.writeAccountError(w, "create user", err)
		return
	}

	h.AuditLog.UserCreated(ctx, actor, u.ID.Hex(), u.DisplayName(), u.Phone, req.IsAdmin)
	httpjson.Write(w, http.StatusCreated, rowFor(u, req.IsAdmin))
}

// HandleResetPassword handles POST /api/admin/users/reset-password and its
// alias POST /api/reset-password.
func (h *Handler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.Actor(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return
	}
	var req resetRequest
	if err := httpjson.Decode(w, r, &req, 0); err != nil {
		httpjson.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := submission.Check(h.Validate, req); err != nil {
		h.writeAccountError(w, "validate reset", err)
		return
	}
	id, err := primitive.ObjectIDFromHex(strings.TrimSpace(req.UID))
	if err != nil {
		httpjson.NotFound(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	ident, err := h.Accounts.ResetPassword(ctx, id, req.NewPassword)
	if err != nil {
		h.writeAccountError(w, "reset password", err)
		return
	}

	h.AuditLog.PasswordReset(ctx, actor, id.Hex(), ident.Phone)
	httpjson.OK(w, map[string]string{"uid": id.Hex()})
}

// target reads {id} and refuses the acting admin's own account, which
// cannot be deleted or demoted through the API.
func target(w http.ResponseWriter, r *http.Request, actorID, verb string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.NotFound(w)
		return primitive.NilObjectID, false
	}
	if id.Hex() == actorID {
		httpjson.Error(w, http.StatusConflict, "you cannot "+verb+" your own account")
		return primitive.NilObjectID, false
	}
	return id, true
}

// HandleDelete handles DELETE /api/admin/users/{id}: the profile, the
// identity and any admin membership are removed together.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.Actor(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return
	}
	id, ok := target(w, r, actor.UID, "delete")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.Accounts.Delete(ctx, id)
	if err != nil {
		h.writeAccountError(w, "delete user", err)
		return
	}
	h.AuditLog.UserDeleted(ctx, actor, id.Hex(), u.DisplayName(), u.Phone)
	httpjson.OK(w, map[string]string{"deleted": id.Hex()})
}

// HandlePromote handles POST /api/admin/users/{id}/promote.
func (h *Handler) HandlePromote(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.Actor(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		httpjson.NotFound(w)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Accounts.Promote(ctx, id, actor.UID)
	if err != nil {
		h.writeAccountError(w, "promote user", err)
		return
	}
	h.AuditLog.AdminPromoted(ctx, actor, id.Hex(), u.DisplayName(), u.Phone)
	httpjson.OK(w, rowFor(u, true))
}

// HandleDemote handles POST /api/admin/users/{id}/demote.
func (h *Handler) HandleDemote(w http.ResponseWriter, r *http.Request) {
	actor, ok := authz.Actor(r)
	if !ok {
		httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
		return
	}
	id, ok := target(w, r, actor.UID, "demote")
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.Accounts.Demote(ctx, id)
	if err != nil {
		h.writeAccountError(w, "demote user", err)
		return
	}
	h.AuditLog.AdminDemoted(ctx, actor, id.Hex(), u.DisplayName(), u.Phone)
	httpjson.OK(w, rowFor(u, false))
}
