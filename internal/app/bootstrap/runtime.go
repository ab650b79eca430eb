// internal/app/bootstrap/runtime.go
package bootstrap

import (
	"context"
	"fmt"

	elearningstore "github.com/dalemusser/testimonyhub/internal/app/store/elearning"
	poststore "github.com/dalemusser/testimonyhub/internal/app/store/posts"
	"github.com/dalemusser/testimonyhub/internal/app/system/blob"
	"github.com/dalemusser/testimonyhub/internal/app/system/geocode"
	"github.com/dalemusser/testimonyhub/internal/app/system/phone"
	"github.com/dalemusser/testimonyhub/internal/app/system/ratelimit"
	"github.com/dalemusser/testimonyhub/internal/app/system/workers"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Runtime holds the long-lived services built at Startup.
type Runtime struct {
	Blobs        blob.Store
	LocalBlobs   *blob.Local // set when storage_type is local
	Geocoder     *geocode.Resolver
	LoginLimiter *ratelimit.LoginLimiter
	Reconciler   *workers.BlobReconciler // nil when the worker is disabled

	geoClient   *geocode.Client
	memLimiters []*ratelimit.Limiter
}

// Phones returns the normalizer for the configured numbering plan.
func (c AppConfig) Phones() phone.Normalizer {
	return phone.Normalizer{TrunkPrefix: c.PhoneTrunkPrefix, CountryCode: c.PhoneCountryCode}
}

// newBlobStore builds the configured media store.
func newBlobStore(ctx context.Context, appCfg AppConfig) (blob.Store, *blob.Local, error) {
	switch appCfg.StorageType {
	case "s3":
		s3, err := blob.NewS3(ctx, blob.S3Config{
			Region:    appCfg.StorageS3Region,
			Bucket:    appCfg.StorageS3Bucket,
			Prefix:    appCfg.StorageS3Prefix,
			PublicURL: appCfg.StoragePublicURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("s3 storage: %w", err)
		}
		return s3, nil, nil
	case "local":
		local, err := blob.NewLocal(appCfg.StorageLocalPath, appCfg.StorageLocalURL)
		if err != nil {
			return nil, nil, fmt.Errorf("local storage: %w", err)
		}
		return local, local, nil
	}
	return nil, nil, fmt.Errorf("unknown storage_type %q", appCfg.StorageType)
}

// newGeocoder builds the place-name resolver. Lookups are disabled when no
// geocoder URL is configured; results are cached only when Redis is available.
func newGeocoder(appCfg AppConfig, rdb *redis.Client, logger *zap.Logger) (*geocode.Resolver, *geocode.Client) {
	var lookup geocode.Lookuper
	var client *geocode.Client
	if appCfg.GeocodeURL != "" {
		client = geocode.NewClient(geocode.Config{
			BaseURL:   appCfg.GeocodeURL,
			UserAgent: appCfg.GeocodeUserAgent,
			Timeout:   appCfg.GeocodeTimeout,
		})
		lookup = client
	}
	var cache geocode.Cache
	if rdb != nil {
		cache = geocode.NewRedisCache(rdb, "geocode:", appCfg.GeocodeCacheTTL)
	}
	return geocode.NewResolver(lookup, cache, logger), client
}

// newLoginLimiter shares counters through Redis when available so every
// instance sees the same attempts.
func newLoginLimiter(appCfg AppConfig, rdb *redis.Client) (*ratelimit.LoginLimiter, []*ratelimit.Limiter) {
	if rdb != nil {
		return ratelimit.NewLoginLimiter(
			ratelimit.NewRedis(rdb, "ratelimit:login:", appCfg.LoginRateLimit, appCfg.LoginRateWindow),
			ratelimit.NewRedis(rdb, "ratelimit:login:", appCfg.LoginRateLimit, 5*appCfg.LoginRateWindow),
		), nil
	}
	ip := ratelimit.New(appCfg.LoginRateLimit, appCfg.LoginRateWindow)
	account := ratelimit.New(appCfg.LoginRateLimit, 5*appCfg.LoginRateWindow)
	return ratelimit.NewLoginLimiter(ip, account), []*ratelimit.Limiter{ip, account}
}

// NewReconciler builds the orphaned-media reconciler over the post and
// e-learning collections. The CLI uses it for on-demand runs.
func NewReconciler(db *mongo.Database, blobs blob.Store, appCfg AppConfig, logger *zap.Logger) *workers.BlobReconciler {
	sources := []workers.ReferenceSource{poststore.New(db), elearningstore.New(db)}
	return workers.NewBlobReconciler(blobs, sources, logger, appCfg.BlobReconcileInterval, appCfg.BlobReconcileGrace)
}

// NewBlobStore exposes the configured media store to the CLI.
func NewBlobStore(ctx context.Context, appCfg AppConfig) (blob.Store, error) {
	s, _, err := newBlobStore(ctx, appCfg)
	return s, err
}

func (rt *Runtime) stop(logger *zap.Logger) {
	if rt.Reconciler != nil {
		rt.Reconciler.Stop()
		logger.Info("blob reconciler stopped")
	}
	for _, l := range rt.memLimiters {
		l.Stop()
	}
	if rt.geoClient != nil {
		rt.geoClient.CloseIdleConnections()
	}
}
