package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/system/httpjson"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Session user in context                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the verified caller, injected into r.Context().
type SessionUser struct {
	ID        string
	Phone     string
	Email     string
	TokenID   string
	ExpiresAt time.Time
	IsAdmin   bool // set by RequireAdmin after a membership lookup
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user & "found?" flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	return FromContext(r.Context())
}

// FromContext returns the session user carried by ctx.
func FromContext(ctx context.Context) (*SessionUser, bool) {
	u, ok := ctx.Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// WithTestUser injects u into the request context, bypassing token checks.
// It exists for handler tests.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Session manager                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

const tokenKey = "token"

// AdminChecker answers whether a user currently holds admin membership.
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID string) (bool, error)
}

// SessionManager authenticates requests from a bearer token or from the
// session cookie that carries the same token for browser clients.
type SessionManager struct {
	tokens  *Tokens
	store   *sessions.CookieStore
	name    string
	revoker Revoker
	log     *zap.Logger
}

// NewSessionManager builds a SessionManager.
//
// In production (secure=true), cookies are Secure + SameSite=None.
// In local dev over http://localhost, use secure=false so cookies are accepted.
func NewSessionManager(sessionKey, name, domain string, tokens *Tokens, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, fmt.Errorf("session key is empty; provide ≥32 random chars")
	}
	if tokens == nil {
		return nil, fmt.Errorf("session manager needs a token issuer")
	}
	if len(sessionKey) < 32 {
		logger.Warn("session key is short; 32+ chars recommended",
			zap.Int("length", len(sessionKey)))
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(tokens.TTL().Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	logger.Info("session manager initialized",
		zap.Bool("secure", secure),
		zap.String("domain", domain),
		zap.Duration("token_ttl", tokens.TTL()))

	return &SessionManager{tokens: tokens, store: store, name: name, log: logger}, nil
}

// SetRevoker enables sign-out revocation checks.
func (m *SessionManager) SetRevoker(r Revoker) { m.revoker = r }

// Tokens returns the issuer used by the manager.
func (m *SessionManager) Tokens() *Tokens { return m.tokens }

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}

func (m *SessionManager) requestToken(r *http.Request) string {
	if t := bearerToken(r); t != "" {
		return t
	}
	sess, err := m.store.Get(r, m.name)
	if err != nil {
		return ""
	}
	t, _ := sess.Values[tokenKey].(string)
	return t
}

// Authenticate returns the user for a raw token.
func (m *SessionManager) Authenticate(ctx context.Context, token string) (*SessionUser, error) {
	claims, err := m.tokens.Verify(token)
	if err != nil {
		return nil, err
	}
	if m.revoker != nil && claims.ID != "" {
		revoked, err := m.revoker.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, fmt.Errorf("check revocation: %w", err)
		}
		if revoked {
			return nil, ErrInvalidToken
		}
	}
	u := &SessionUser{
		ID:      claims.UID,
		Phone:   claims.Phone,
		Email:   claims.Email,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		u.ExpiresAt = claims.ExpiresAt.Time
	}
	return u, nil
}

// LoadSessionUser injects the user into context when the request carries a
// valid token. Requests without one continue anonymously.
func (m *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := m.requestToken(r)
		if token == "" {
			next.ServeHTTP(w, r)
			return
		}
		u, err := m.Authenticate(r.Context(), token)
		if err != nil {
			if !errors.Is(err, ErrInvalidToken) {
				m.log.Warn("session lookup failed", zap.Error(err))
			}
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, withUser(r, u))
	})
}

// RequireSignedIn answers 401 when there is no user in context.
func (m *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := CurrentUser(r); !ok {
			httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin answers 401 without a user and 403 unless checker confirms
// admin membership. The check runs on every request; the token carries no
// admin flag.
func (m *SessionManager) RequireAdmin(checker AdminChecker) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, ok := CurrentUser(r)
			if !ok {
				httpjson.Error(w, http.StatusUnauthorized, httpjson.MsgUnauthorized)
				return
			}
			isAdmin, err := checker.IsAdmin(r.Context(), u.ID)
			if err != nil {
				m.log.Error("admin membership lookup failed", zap.Error(err), zap.String("user_id", u.ID))
				httpjson.Unavailable(w)
				return
			}
			if !isAdmin {
				httpjson.Error(w, http.StatusForbidden, httpjson.MsgForbidden)
				return
			}
			cp := *u
			cp.IsAdmin = true
			next.ServeHTTP(w, withUser(r, &cp))
		})
	}
}

// Login stores token in the session cookie.
func (m *SessionManager) Login(w http.ResponseWriter, r *http.Request, token string) error {
	sess, _ := m.store.Get(r, m.name)
	sess.Values[tokenKey] = token
	return sess.Save(r, w)
}

// Logout clears the session cookie and revokes the current token.
func (m *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	if u, ok := CurrentUser(r); ok && m.revoker != nil && u.TokenID != "" {
		if err := m.revoker.Revoke(r.Context(), u.TokenID, u.ExpiresAt); err != nil {
			m.log.Warn("token revocation failed", zap.Error(err), zap.String("user_id", u.ID))
		}
	}
	sess, _ := m.store.Get(r, m.name)
	delete(sess.Values, tokenKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}
