// Package testutil provides a MongoDB test database, fixtures and request
// helpers shared by package tests.
//
// Tests that need MongoDB call SetupTestDB. The database URI comes from
// TESTIMONYHUB_TEST_MONGO_URI (default mongodb://localhost:27017); when
// nothing answers the test is skipped rather than failed.
package testutil

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const defaultMongoURI = "mongodb://localhost:27017"

var (
	clientOnce sync.Once
	client     *mongo.Client
	clientErr  error
)

func mongoClient() (*mongo.Client, error) {
	clientOnce.Do(func() {
		uri := os.Getenv("TESTIMONYHUB_TEST_MONGO_URI")
		if uri == "" {
			uri = defaultMongoURI
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		c, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetServerSelectionTimeout(2*time.Second))
		if err != nil {
			clientErr = err
			return
		}
		if err := c.Ping(ctx, readpref.Primary()); err != nil {
			_ = c.Disconnect(context.Background())
			clientErr = err
			return
		}
		client = c
	})
	return client, clientErr
}

// TestContext returns a context with a timeout suitable for a single test step.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

// SetupTestDB returns a fresh database that is dropped when the test ends.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()
	c, err := mongoClient()
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	return SetupTestDBWithClient(t, c)
}

// SetupTestDBWithClient is SetupTestDB for callers that also need the client,
// for example to start sessions.
func SetupTestDBWithClient(t *testing.T, c *mongo.Client) *mongo.Database {
	t.Helper()
	name := "testimonyhub_test_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	db := c.Database(name)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Drop(ctx)
	})
	return db
}

// MongoClient returns the shared test client, skipping the test when MongoDB
// is not reachable.
func MongoClient(t *testing.T) *mongo.Client {
	t.Helper()
	c, err := mongoClient()
	if err != nil {
		t.Skipf("MongoDB not available: %v", err)
	}
	return c
}

// SetupTestRedis returns a Redis client from TESTIMONYHUB_TEST_REDIS_URL with
// a key prefix unique to the test. Keys under the prefix are removed on cleanup.
// The test is skipped when the variable is unset or the server does not answer.
func SetupTestRedis(t *testing.T) (*redis.Client, string) {
	t.Helper()
	url := os.Getenv("TESTIMONYHUB_TEST_REDIS_URL")
	if url == "" {
		t.Skip("TESTIMONYHUB_TEST_REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}
	rdb := redis.NewClient(opts)
	ctx, cancel := TestContext()
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		t.Skipf("Redis not available: %v", err)
	}

	prefix := fmt.Sprintf("testimonyhub_test:%s:", uuid.NewString())
	t.Cleanup(func() {
		ctx, cancel := TestContext()
		defer cancel()
		iter := rdb.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			rdb.Del(ctx, iter.Val())
		}
		_ = rdb.Close()
	})
	return rdb, prefix
}
