//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Sternrassler/product-collector/internal/testutil"
	"github.com/Sternrassler/product-collector/pkg/cache"
	"github.com/Sternrassler/product-collector/pkg/checkpoint"
	"github.com/Sternrassler/product-collector/pkg/client"
	"github.com/Sternrassler/product-collector/pkg/collector"
	"github.com/Sternrassler/product-collector/pkg/product"
	"github.com/Sternrassler/product-collector/pkg/sink"
)

// setupRedis creates a Redis container for integration testing.
func setupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	cleanup := func() {
		redisClient.Close()
		container.Terminate(ctx)
	}

	return redisClient, cleanup
}

func newClient(t *testing.T, api *testutil.MockAPI, mgr *cache.Manager) *client.Client {
	t.Helper()

	cfg := client.DefaultConfig()
	cfg.BaseURL = api.BaseURL()
	cfg.RetryDelay = 10 * time.Millisecond
	cfg.Timeout = 5 * time.Second
	cfg.Cache = mgr

	c, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	return c
}

// TestFullCollectionFlow runs the checkpointed pipeline against the mock API
// with the product cache and the Redis checkpoint store.
func TestFullCollectionFlow(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	api := testutil.NewMockAPI()
	defer api.Close()
	api.SetResponses("3", testutil.NewNotFoundResponse())
	api.SetResponses("4", testutil.NewServerErrorResponse(), testutil.NewProductResponse(`{"id": 4, "name": "late"}`))

	outDir := t.TempDir()
	store, err := sink.NewLocalStore(outDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	writer := sink.NewWriter(store, filepath.Join(outDir, "error"))
	progress := checkpoint.NewRedisStore(redisClient, "test:checkpoint")

	c := newClient(t, api, cache.NewManager(redisClient, time.Minute))
	col, err := collector.New(collector.Config{
		Mode:      collector.ModeCheckpointed,
		BatchSize: 2,
		Workers:   4,
	}, c, writer, progress)
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}

	ctx := context.Background()
	summary, err := col.Run(ctx, []string{"1", "2", "3", "4", "5"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.Counts.Products != 4 || summary.Counts.NotFound != 1 {
		t.Errorf("Counts = %+v, want 4 products and 1 not found", summary.Counts)
	}

	next, err := progress.Load(ctx)
	if err != nil {
		t.Fatalf("Load checkpoint failed: %v", err)
	}
	if next != 4 {
		t.Errorf("Checkpoint = %d, want 4", next)
	}

	if got := api.Attempts("4"); got != 2 {
		t.Errorf("Attempts for 4 = %d, want 2", got)
	}

	data, err := os.ReadFile(filepath.Join(outDir, sink.ProductKey(2)))
	if err != nil {
		t.Fatalf("Failed to read batch 2: %v", err)
	}
	var products []product.Product
	if err := json.Unmarshal(data, &products); err != nil {
		t.Fatalf("Failed to decode batch 2: %v", err)
	}
	if len(products) != 1 || products[0].Name != "late" {
		t.Errorf("Batch 2 = %+v, want the product fetched on retry", products)
	}
}

// TestRedisCheckpointResume verifies a second collector resumes where the
// first stopped.
func TestRedisCheckpointResume(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	api := testutil.NewMockAPI()
	defer api.Close()

	ctx := context.Background()
	progress := checkpoint.NewRedisStore(redisClient, checkpoint.DefaultRedisKey)
	if err := progress.Save(ctx, 3); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	store, err := sink.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	col, err := collector.New(collector.Config{
		Mode:      collector.ModeCheckpointed,
		BatchSize: 2,
		Workers:   2,
	}, newClient(t, api, nil), sink.NewWriter(store, t.TempDir()), progress)
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}

	ids := []string{"1", "2", "3", "4", "5", "6"}
	summary, err := col.Run(ctx, ids)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if summary.StartBatch != 3 || summary.Batches != 1 {
		t.Errorf("Summary = %+v, want one batch starting at 3", summary)
	}
	for _, id := range []string{"1", "2", "3", "4"} {
		if api.Attempts(id) != 0 {
			t.Errorf("id %s was fetched from a completed batch", id)
		}
	}
	if api.GetRequestCount() != 2 {
		t.Errorf("API requests = %d, want 2", api.GetRequestCount())
	}
}

// TestCacheHit verifies a cached product is served without a request.
func TestCacheHit(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	api := testutil.NewMockAPI()
	defer api.Close()

	c := newClient(t, api, cache.NewManager(redisClient, time.Minute))
	ctx := context.Background()

	first := c.Fetch(ctx, "42")
	if !first.IsSuccess() {
		t.Fatalf("First fetch = %+v, want success", first)
	}
	if api.GetRequestCount() != 1 {
		t.Errorf("API requests = %d, want 1", api.GetRequestCount())
	}

	second := c.Fetch(ctx, "42")
	if !second.IsSuccess() {
		t.Fatalf("Second fetch = %+v, want success", second)
	}
	if second.Attempts != 0 {
		t.Errorf("Attempts = %d, want 0 for a cache hit", second.Attempts)
	}
	if api.GetRequestCount() != 1 {
		t.Errorf("API requests = %d, want 1 (served from cache)", api.GetRequestCount())
	}
	if second.Product.Name != first.Product.Name {
		t.Errorf("Cached name = %q, want %q", second.Product.Name, first.Product.Name)
	}
}

// TestNotFoundIsNotCached verifies only successes are cached.
func TestNotFoundIsNotCached(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	api := testutil.NewMockAPI()
	defer api.Close()
	api.SetResponses("7", testutil.NewNotFoundResponse())

	mgr := cache.NewManager(redisClient, time.Minute)
	c := newClient(t, api, mgr)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if got := c.Fetch(ctx, "7"); got.Status != product.StatusNotFound {
			t.Fatalf("Fetch status = %s, want %s", got.Status, product.StatusNotFound)
		}
	}
	if api.Attempts("7") != 2 {
		t.Errorf("Attempts = %d, want 2", api.Attempts("7"))
	}

	if _, err := mgr.Get(ctx, mgr.Key("7")); !errors.Is(err, cache.ErrCacheMiss) {
		t.Errorf("Cache lookup err = %v, want ErrCacheMiss", err)
	}
}

// TestCacheExpiration tests that expired cache entries are not used.
func TestCacheExpiration(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	api := testutil.NewMockAPI()
	defer api.Close()

	mgr := cache.NewManager(redisClient, time.Second)
	c := newClient(t, api, mgr)
	ctx := context.Background()

	if got := c.Fetch(ctx, "9"); !got.IsSuccess() {
		t.Fatalf("Fetch = %+v, want success", got)
	}

	entry, err := mgr.Get(ctx, mgr.Key("9"))
	if err != nil {
		t.Fatalf("Cache lookup failed: %v", err)
	}
	if entry.TTL() <= 0 {
		t.Errorf("Entry TTL = %v, want positive", entry.TTL())
	}

	time.Sleep(1500 * time.Millisecond)

	if got := c.Fetch(ctx, "9"); !got.IsSuccess() {
		t.Fatalf("Fetch after expiry = %+v, want success", got)
	}
	if api.GetRequestCount() != 2 {
		t.Errorf("API requests = %d, want 2 after expiry", api.GetRequestCount())
	}
}
