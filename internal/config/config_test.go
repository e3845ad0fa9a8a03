package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir runs the test from an empty directory so no stray collector.yaml is picked up.
func chdir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "checkpointed", cfg.Mode)
	assert.Equal(t, 1000, cfg.BatchSize)
	assert.Equal(t, 40, cfg.Workers)
	assert.False(t, cfg.Dedupe, "duplicates must reach the fetcher unless dedupe is requested")
	assert.Equal(t, "https://api.tiki.vn/product-detail/api/v1/products", cfg.API.BaseURL)
	assert.Equal(t, 15*time.Second, cfg.API.Timeout)
	assert.Equal(t, 5, cfg.API.MaxAttempts)
	assert.Equal(t, 2*time.Second, cfg.API.RetryDelay)
	assert.Equal(t, "output_raw/error", cfg.Output.ErrorDir)
	assert.Equal(t, "output_raw/checkpoint/checkpoint.txt", cfg.Checkpoint.Path)
	assert.Equal(t, "fs", cfg.Storage.Type)
	assert.Equal(t, 24*time.Hour, cfg.Cache.TTL)
	assert.False(t, cfg.NeedsRedis())
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("COLLECTOR_BATCH_SIZE", "250")
	t.Setenv("COLLECTOR_API_RETRY_DELAY", "500ms")
	t.Setenv("COLLECTOR_MODE", "streaming")
	t.Setenv("COLLECTOR_OUTPUT_DIR", "/data/raw")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, 250, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.API.RetryDelay)
	assert.Equal(t, "streaming", cfg.Mode)
	assert.Equal(t, "/data/raw/error", cfg.Output.ErrorDir)
}

func TestLoad_ConfigFile(t *testing.T) {
	dir := chdir(t)
	path := filepath.Join(dir, "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
workers: 0
workers_per_cpu: 8
storage:
  type: s3
  bucket: products
  prefix: raw
checkpoint:
  backend: redis
log:
  level: debug
`), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, 0, cfg.Workers)
	assert.Equal(t, 8, cfg.WorkersPerCPU)
	assert.Equal(t, "s3", cfg.Storage.Type)
	assert.Equal(t, "products", cfg.Storage.Bucket)
	assert.Equal(t, "redis", cfg.Checkpoint.Backend)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.NeedsRedis())
}

func TestLoad_DefaultFileInWorkingDir(t *testing.T) {
	dir := chdir(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "collector.yaml"), []byte("batch_size: 7\n"), 0o644))

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.BatchSize)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	dir := chdir(t)

	_, err := Load(viper.New(), filepath.Join(dir, "nope.yaml"))
	assert.ErrorContains(t, err, "read config")
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"unknown mode", "mode", "parallel"},
		{"zero batch size", "batch_size", 0},
		{"zero attempts", "api.max_attempts", 0},
		{"bad base url", "api.base_url", "not a url"},
		{"unknown storage", "storage.type", "ftp"},
		{"s3 without bucket", "storage.type", "s3"},
		{"gcs without bucket", "storage.type", "gcs"},
		{"unknown checkpoint backend", "checkpoint.backend", "etcd"},
		{"unknown log level", "log.level", "trace"},
		{"negative workers", "workers", -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdir(t)
			v := viper.New()
			v.Set(tt.key, tt.value)

			_, err := Load(v, "")
			assert.ErrorContains(t, err, "invalid config")
		})
	}
}

func TestValidate_RedisAddrRequired(t *testing.T) {
	chdir(t)
	v := viper.New()
	v.Set("cache.enabled", true)
	v.Set("redis.addr", "")

	_, err := Load(v, "")
	assert.ErrorContains(t, err, "redis.addr is required")
}
