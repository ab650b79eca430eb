// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig keeps the
// framework-level settings (ports, TLS, logging, CORS, body limits).
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64

	// Redis is optional; blank disables the shared cache, limiter and revocation list.
	RedisURL string

	// Session and token configuration
	SessionKey    string // Secret key for signing session cookies (must be strong in production)
	SessionName   string // Cookie name for sessions (default: testimonyhub-session)
	SessionDomain string // Cookie domain (blank means current host)
	TokenSecret   string // HS256 signing secret for session tokens
	TokenTTL      time.Duration

	// Phone numbers
	PhoneTrunkPrefix           string
	PhoneCountryCode           string
	PhoneLoginRequiresPassword bool

	// Login throttling
	LoginRateLimit  int
	LoginRateWindow time.Duration

	// Media storage
	StorageType      string // "local" or "s3"
	StorageLocalPath string // Local storage directory
	StorageLocalURL  string // URL prefix for serving local files (e.g., "/files")
	StorageS3Region  string
	StorageS3Bucket  string
	StorageS3Prefix  string
	StoragePublicURL string // base URL for S3 objects; defaults to the bucket endpoint
	MaxUploadMB      int

	// Reverse geocoding
	GeocodeURL       string
	GeocodeUserAgent string
	GeocodeCacheTTL  time.Duration
	GeocodeTimeout   time.Duration

	// Audit logging: all, db, log or off
	AuditLogMode string

	// Orphaned media cleanup; an interval of zero disables the worker
	BlobReconcileInterval time.Duration
	BlobReconcileGrace    time.Duration

	// First administrator, created or promoted at startup when the phone is set
	SuperAdminPhone    string
	SuperAdminEmail    string
	SuperAdminPassword string

	// Handler timeouts
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutLong   time.Duration
}

// MaxUploadBytes converts MaxUploadMB to bytes.
func (c AppConfig) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
