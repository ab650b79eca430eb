// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/system/auditlog"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for TestimonyHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: TESTIMONYHUB_MONGO_URI, TESTIMONYHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "testimony_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "redis_url", Default: "", Desc: "Redis URL (blank disables Redis-backed caching, rate limiting and revocation)"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "testimonyhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "token_secret", Default: "", Desc: "HS256 secret for session tokens (32+ chars)"},
	{Name: "token_ttl", Default: "168h", Desc: "Session token lifetime"},

	// Phone numbers
	{Name: "phone_trunk_prefix", Default: "0", Desc: "Local trunk prefix replaced by the country code"},
	{Name: "phone_country_code", Default: "232", Desc: "Country calling code, digits only"},
	{Name: "phone_login_requires_password", Default: false, Desc: "Require a password on phone login"},

	// Login throttling
	{Name: "login_rate_limit", Default: 10, Desc: "Login attempts allowed per window, per IP and per account"},
	{Name: "login_rate_window", Default: "1m", Desc: "Login rate limit window"},

	// Media storage
	{Name: "storage_type", Default: "local", Desc: "Storage backend: 'local' or 's3'"},
	{Name: "storage_local_path", Default: "./uploads", Desc: "Local storage path for uploaded files"},
	{Name: "storage_local_url", Default: "/files", Desc: "URL prefix for serving local files"},
	{Name: "storage_s3_region", Default: "", Desc: "AWS region for S3"},
	{Name: "storage_s3_bucket", Default: "", Desc: "S3 bucket name"},
	{Name: "storage_s3_prefix", Default: "", Desc: "S3 key prefix"},
	{Name: "storage_public_url", Default: "", Desc: "Public base URL for stored objects (CDN or bucket URL)"},
	{Name: "max_upload_mb", Default: 50, Desc: "Maximum upload size in MB"},

	// Reverse geocoding
	{Name: "geocode_url", Default: "https://nominatim.openstreetmap.org", Desc: "Nominatim-compatible base URL (blank disables lookups)"},
	{Name: "geocode_user_agent", Default: "testimonyhub/1.0", Desc: "User-Agent sent to the geocoder"},
	{Name: "geocode_cache_ttl", Default: "720h", Desc: "How long resolved place names are cached in Redis"},
	{Name: "geocode_timeout", Default: "5s", Desc: "Per-request geocoder timeout"},

	// Audit logging
	{Name: "audit_log_mode", Default: "all", Desc: "Audit logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Orphaned media cleanup
	{Name: "blob_reconcile_interval", Default: "6h", Desc: "How often to remove unreferenced media (0 disables)"},
	{Name: "blob_reconcile_grace", Default: "24h", Desc: "Minimum age of unreferenced media before removal"},

	// First administrator
	{Name: "superadmin_phone", Default: "", Desc: "Phone of the first administrator (created or promoted on startup)"},
	{Name: "superadmin_email", Default: "", Desc: "Email of the first administrator"},
	{Name: "superadmin_password", Default: "", Desc: "Password for a newly created first administrator"},

	// Timeouts
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document operations"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for list queries and moderation"},
	{Name: "timeout_long", Default: "30s", Desc: "Timeout for uploads and reports"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles .env files, config files,
// environment variables (WAFFLE_* for core, TESTIMONYHUB_* for app) and
// flags, with precedence flags > env > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "TESTIMONYHUB", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		RedisURL:         appValues.String("redis_url"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		TokenSecret:   appValues.String("token_secret"),
		TokenTTL:      appValues.Duration("token_ttl", 7*24*time.Hour),

		PhoneTrunkPrefix:           appValues.String("phone_trunk_prefix"),
		PhoneCountryCode:           appValues.String("phone_country_code"),
		PhoneLoginRequiresPassword: appValues.Bool("phone_login_requires_password"),

		LoginRateLimit:  appValues.Int("login_rate_limit"),
		LoginRateWindow: appValues.Duration("login_rate_window", time.Minute),

		StorageType:      appValues.String("storage_type"),
		StorageLocalPath: appValues.String("storage_local_path"),
		StorageLocalURL:  appValues.String("storage_local_url"),
		StorageS3Region:  appValues.String("storage_s3_region"),
		StorageS3Bucket:  appValues.String("storage_s3_bucket"),
		StorageS3Prefix:  appValues.String("storage_s3_prefix"),
		StoragePublicURL: appValues.String("storage_public_url"),
		MaxUploadMB:      appValues.Int("max_upload_mb"),

		GeocodeURL:       appValues.String("geocode_url"),
		GeocodeUserAgent: appValues.String("geocode_user_agent"),
		GeocodeCacheTTL:  appValues.Duration("geocode_cache_ttl", 30*24*time.Hour),
		GeocodeTimeout:   appValues.Duration("geocode_timeout", 5*time.Second),

		AuditLogMode: appValues.String("audit_log_mode"),

		BlobReconcileInterval: appValues.Duration("blob_reconcile_interval", 6*time.Hour),
		BlobReconcileGrace:    appValues.Duration("blob_reconcile_grace", 24*time.Hour),

		SuperAdminPhone:    appValues.String("superadmin_phone"),
		SuperAdminEmail:    appValues.String("superadmin_email"),
		SuperAdminPassword: appValues.String("superadmin_password"),

		TimeoutShort:  appValues.Duration("timeout_short", 5*time.Second),
		TimeoutMedium: appValues.Duration("timeout_medium", 10*time.Second),
		TimeoutLong:   appValues.Duration("timeout_long", 30*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}

	switch appCfg.StorageType {
	case "local":
		if appCfg.StorageLocalPath == "" {
			return fmt.Errorf("storage_type=local requires storage_local_path")
		}
	case "s3":
		if appCfg.StorageS3Bucket == "" || appCfg.StorageS3Region == "" {
			return fmt.Errorf("storage_type=s3 requires storage_s3_bucket and storage_s3_region")
		}
	default:
		return fmt.Errorf("unknown storage_type %q (want local or s3)", appCfg.StorageType)
	}

	if appCfg.TokenSecret == "" {
		return fmt.Errorf("token_secret is required")
	}
	if len(appCfg.TokenSecret) < 32 {
		logger.Warn("token_secret is short; 32+ chars recommended",
			zap.Int("length", len(appCfg.TokenSecret)))
	}

	if appCfg.RedisURL != "" {
		if _, err := redis.ParseURL(appCfg.RedisURL); err != nil {
			return fmt.Errorf("invalid redis_url: %w", err)
		}
	}

	switch appCfg.AuditLogMode {
	case auditlog.ModeAll, auditlog.ModeDB, auditlog.ModeLog, auditlog.ModeOff:
	default:
		return fmt.Errorf("unknown audit_log_mode %q", appCfg.AuditLogMode)
	}

	if appCfg.LoginRateLimit < 1 {
		return fmt.Errorf("login_rate_limit must be at least 1")
	}
	if appCfg.MaxUploadMB < 1 {
		return fmt.Errorf("max_upload_mb must be at least 1")
	}
	if appCfg.SuperAdminPhone == "" && (appCfg.SuperAdminEmail != "" || appCfg.SuperAdminPassword != "") {
		logger.Warn("superadmin_email/superadmin_password are ignored without superadmin_phone")
	}

	return nil
}
