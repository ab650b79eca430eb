// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/dalemusser/testimonyhub/internal/app/policy/postpolicy"
	"github.com/dalemusser/testimonyhub/internal/app/store/audit"
	"github.com/dalemusser/testimonyhub/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the signed-in user's ObjectID, phone, and a found flag.
// If no user is present in context or the user ID is malformed, it returns
// NilObjectID, "", false. Callers can trust that ok=true means a valid,
// authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (userID primitive.ObjectID, phone string, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, "", false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed user ID in token - fail closed.
		return primitive.NilObjectID, "", false
	}
	return userID, user.Phone, true
}

// IsAdmin reports whether RequireAdmin confirmed admin membership for this request.
func IsAdmin(r *http.Request) bool {
	user, ok := auth.CurrentUser(r)
	return ok && user.IsAdmin
}

// Identity returns the session identity used by the viewer gate, or nil
// for anonymous requests.
func Identity(r *http.Request) *postpolicy.Identity {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return nil
	}
	return &postpolicy.Identity{ID: user.ID, Phone: user.Phone}
}

// Actor returns the audit actor for the current request. It is taken from the
// verified session only.
func Actor(r *http.Request) (audit.Actor, bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return audit.Actor{}, false
	}
	return audit.Actor{UID: user.ID, Email: user.Email, Phone: user.Phone}, true
}
