// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	adminusersfeature "github.com/dalemusser/testimonyhub/internal/app/features/adminusers"
	auditlogfeature "github.com/dalemusser/testimonyhub/internal/app/features/auditlog"
	dashboardfeature "github.com/dalemusser/testimonyhub/internal/app/features/dashboard"
	elearningfeature "github.com/dalemusser/testimonyhub/internal/app/features/elearning"
	healthfeature "github.com/dalemusser/testimonyhub/internal/app/features/health"
	landmappingfeature "github.com/dalemusser/testimonyhub/internal/app/features/landmapping"
	loginfeature "github.com/dalemusser/testimonyhub/internal/app/features/login"
	moderationfeature "github.com/dalemusser/testimonyhub/internal/app/features/moderation"
	reportsfeature "github.com/dalemusser/testimonyhub/internal/app/features/reports"
	testimoniesfeature "github.com/dalemusser/testimonyhub/internal/app/features/testimonies"
	adminstore "github.com/dalemusser/testimonyhub/internal/app/store/admins"
	"github.com/dalemusser/testimonyhub/internal/app/store/audit"
	elearningstore "github.com/dalemusser/testimonyhub/internal/app/store/elearning"
	identitystore "github.com/dalemusser/testimonyhub/internal/app/store/identities"
	poststore "github.com/dalemusser/testimonyhub/internal/app/store/posts"
	userstore "github.com/dalemusser/testimonyhub/internal/app/store/users"
	"github.com/dalemusser/testimonyhub/internal/app/system/accounts"
	"github.com/dalemusser/testimonyhub/internal/app/system/auditlog"
	"github.com/dalemusser/testimonyhub/internal/app/system/auth"
	"github.com/dalemusser/testimonyhub/internal/app/system/metrics"
	"github.com/dalemusser/testimonyhub/internal/app/system/moderation"
	"github.com/dalemusser/testimonyhub/internal/app/system/submission"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const tokenIssuer = "testimonyhub"

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. It builds the stores and services once
// and mounts one feature router per API surface.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase
	rt := deps.Runtime
	phones := appCfg.Phones()

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	tokens, err := auth.NewTokens(appCfg.TokenSecret, appCfg.TokenTTL, tokenIssuer)
	if err != nil {
		logger.Error("token issuer init failed", zap.Error(err))
		return nil, err
	}
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, tokens, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Redis is optional; the health check and revocation list take an
	// untyped nil when it is absent.
	var rdb redis.Cmdable
	if deps.Redis != nil {
		rdb = deps.Redis
		sessionMgr.SetRevoker(auth.NewRedisRevoker(deps.Redis))
	}

	// Stores and services
	posts := poststore.New(db)
	users := userstore.New(db)
	admins := adminstore.New(db)
	idents := identitystore.New(db)
	items := elearningstore.New(db)
	auditStore := audit.New(db)
	auditLog := auditlog.New(auditStore, logger, auditlog.Config{Mode: appCfg.AuditLogMode})
	acc := accounts.New(deps.MongoClient, db, phones, logger)
	mod := moderation.NewService(posts, auditLog, logger,
		moderation.WithMediaRemover(rt.Blobs),
		moderation.WithPhoneNormalizer(phones))
	builder := submission.NewBuilder(rt.Blobs, rt.Geocoder, logger,
		submission.WithPhoneNormalizer(phones))
	maxUpload := appCfg.MaxUploadBytes()

	r := chi.NewRouter()
	r.Use(metrics.Middleware)

	// Global auth middleware: loads SessionUser into context when the
	// request carries a valid token.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, rdb, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Handle("/metrics", metrics.Handler())

	// Uploaded media, when stored on local disk
	if rt.LocalBlobs != nil {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, rt.LocalBlobs.Root()))
	}

	// Authentication
	loginHandler := loginfeature.NewHandler(idents, admins, sessionMgr, rt.LoginLimiter, phones, appCfg.PhoneLoginRequiresPassword, logger)
	r.Mount("/api/auth", loginfeature.Routes(loginHandler, sessionMgr))

	// Public feed, submission and single-post view
	postsHandler := testimoniesfeature.NewHandler(posts, mod, builder, admins, phones, maxUpload, logger)
	r.Mount("/api/posts", testimoniesfeature.Routes(postsHandler, sessionMgr))

	// Owner dashboard
	dashHandler := dashboardfeature.NewHandler(posts, mod, phones, logger)
	r.Mount("/api/me/posts", dashboardfeature.Routes(dashHandler, sessionMgr))

	// Moderation console
	modHandler := moderationfeature.NewHandler(posts, mod, logger)
	r.Mount("/api/admin/posts", moderationfeature.Routes(modHandler, sessionMgr, admins))

	landHandler := landmappingfeature.NewHandler(posts, mod, logger)
	r.Mount("/api/admin/landmapping", landmappingfeature.Routes(landHandler, sessionMgr, admins))

	// User administration, plus the legacy paths older clients still call
	usersHandler := adminusersfeature.NewHandler(acc, users, admins, auditLog, logger)
	r.Mount("/api/admin/users", adminusersfeature.Routes(usersHandler, sessionMgr, admins))
	r.With(sessionMgr.RequireAdmin(admins)).Post("/api/admin/create-user", usersHandler.HandleCreate)
	r.With(sessionMgr.RequireAdmin(admins)).Post("/api/reset-password", usersHandler.HandleResetPassword)

	// E-learning catalogue
	learnHandler := elearningfeature.NewHandler(items, rt.Blobs, auditLog, maxUpload, logger)
	r.Mount("/api/elearning", elearningfeature.Routes(learnHandler))
	r.Mount("/api/admin/elearning", elearningfeature.AdminRoutes(learnHandler, sessionMgr, admins))

	// Audit log and reports
	auditHandler := auditlogfeature.NewHandler(auditStore, logger)
	r.Mount("/api/admin/audit", auditlogfeature.Routes(auditHandler, sessionMgr, admins))

	reportsHandler := reportsfeature.NewHandler(posts, users, logger)
	r.Mount("/api/admin/reports", reportsfeature.Routes(reportsHandler, sessionMgr, admins))

	return r, nil
}
