package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dalemusser/testimonyhub/internal/app/bootstrap"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const envPrefix = "TESTIMONYHUB_"

// env returns TESTIMONYHUB_<KEY> or def.
func env(key, def string) string {
	if v, ok := os.LookupEnv(envPrefix + strings.ToUpper(key)); ok && v != "" {
		return v
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(env(key, "")); err == nil {
		return d
	}
	return def
}

// connFlags are the settings shared by commands that touch the database.
type connFlags struct {
	mongoURI string
	database string
}

func (f *connFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.mongoURI, "mongo-uri", env("mongo_uri", "mongodb://localhost:27017"), "MongoDB connection URI")
	cmd.Flags().StringVar(&f.database, "database", env("mongo_database", "testimony_hub"), "MongoDB database name")
}

func (f *connFlags) connect(ctx context.Context) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(f.mongoURI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(f.database), nil
}

// appConfig fills the parts of the service configuration the CLI needs
// from the environment.
func appConfig() bootstrap.AppConfig {
	return bootstrap.AppConfig{
		PhoneTrunkPrefix:   env("phone_trunk_prefix", "0"),
		PhoneCountryCode:   env("phone_country_code", "232"),
		StorageType:        env("storage_type", "local"),
		StorageLocalPath:   env("storage_local_path", "./uploads"),
		StorageLocalURL:    env("storage_local_url", "/files"),
		StorageS3Region:    env("storage_s3_region", ""),
		StorageS3Bucket:    env("storage_s3_bucket", ""),
		StorageS3Prefix:    env("storage_s3_prefix", ""),
		StoragePublicURL:   env("storage_public_url", ""),
		BlobReconcileGrace: envDuration("blob_reconcile_grace", 24*time.Hour),
		SuperAdminPhone:    env("superadmin_phone", ""),
		SuperAdminEmail:    env("superadmin_email", ""),
		SuperAdminPassword: env("superadmin_password", ""),
	}
}
