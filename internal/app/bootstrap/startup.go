// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/dalemusser/testimonyhub/internal/app/system/accounts"
	"github.com/dalemusser/testimonyhub/internal/app/system/adminsetup"
	"github.com/dalemusser/testimonyhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. It builds
// the media store, geocoder and login limiter, provisions the first
// administrator when configured, and starts the media reconciler.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	rt := deps.Runtime
	if rt == nil {
		return errors.New("startup: runtime not initialized by ConnectDB")
	}

	timeouts.Configure(timeouts.Config{
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	blobs, local, err := newBlobStore(ctx, appCfg)
	if err != nil {
		return err
	}
	rt.Blobs, rt.LocalBlobs = blobs, local
	rt.Geocoder, rt.geoClient = newGeocoder(appCfg, deps.Redis, logger)
	rt.LoginLimiter, rt.memLimiters = newLoginLimiter(appCfg, deps.Redis)

	if appCfg.SuperAdminPhone != "" {
		if err := ensureFirstAdmin(ctx, deps, appCfg, logger); err != nil {
			return err
		}
	}

	if appCfg.BlobReconcileInterval > 0 {
		rt.Reconciler = NewReconciler(deps.MongoDatabase, blobs, appCfg, logger)
		rt.Reconciler.Start()
	}
	return nil
}

func ensureFirstAdmin(ctx context.Context, deps DBDeps, appCfg AppConfig, logger *zap.Logger) error {
	svc := accounts.New(deps.MongoClient, deps.MongoDatabase, appCfg.Phones(), logger)
	res, err := adminsetup.EnsureFirstAdmin(ctx, svc, adminsetup.Params{
		Phone:    appCfg.SuperAdminPhone,
		Email:    appCfg.SuperAdminEmail,
		Password: appCfg.SuperAdminPassword,
	}, logger)
	if err != nil {
		return fmt.Errorf("ensure first admin: %w", err)
	}
	logger.Info("first administrator ready",
		zap.String("user_id", res.User.ID.Hex()),
		zap.Bool("created", res.Created),
		zap.Bool("promoted", res.Promoted))
	return nil
}
