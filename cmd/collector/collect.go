package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/Sternrassler/product-collector/internal/config"
	"github.com/Sternrassler/product-collector/pkg/cache"
	"github.com/Sternrassler/product-collector/pkg/checkpoint"
	"github.com/Sternrassler/product-collector/pkg/client"
	"github.com/Sternrassler/product-collector/pkg/collector"
	"github.com/Sternrassler/product-collector/pkg/dispatch"
	"github.com/Sternrassler/product-collector/pkg/logging"
	"github.com/Sternrassler/product-collector/pkg/metrics"
	"github.com/Sternrassler/product-collector/pkg/sink"
	"github.com/Sternrassler/product-collector/pkg/source"
)

// flagKeys maps collect flags to configuration keys.
var flagKeys = map[string]string{
	"input":              "input",
	"id-column":          "id_column",
	"dedupe":             "dedupe",
	"mode":               "mode",
	"batch-size":         "batch_size",
	"workers":            "workers",
	"workers-per-cpu":    "workers_per_cpu",
	"progress-every":     "progress_every",
	"base-url":           "api.base_url",
	"user-agent":         "api.user_agent",
	"timeout":            "api.timeout",
	"max-attempts":       "api.max_attempts",
	"retry-delay":        "api.retry_delay",
	"output-dir":         "output.dir",
	"error-dir":          "output.error_dir",
	"storage":            "storage.type",
	"bucket":             "storage.bucket",
	"prefix":             "storage.prefix",
	"region":             "storage.region",
	"endpoint":           "storage.endpoint",
	"checkpoint-backend": "checkpoint.backend",
	"checkpoint-path":    "checkpoint.path",
	"checkpoint-key":     "checkpoint.redis_key",
	"redis-addr":         "redis.addr",
	"redis-password":     "redis.password",
	"redis-db":           "redis.db",
	"cache":              "cache.enabled",
	"cache-ttl":          "cache.ttl",
	"metrics-addr":       "metrics.addr",
}

func newCollectCmd(a *app) *cobra.Command {
	var resetCheckpoint bool

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Fetch products for every identifier in the input file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.load()
			if err != nil {
				return err
			}
			return runCollect(cmd.Context(), cmd.OutOrStdout(), cfg, resetCheckpoint)
		},
	}

	f := cmd.Flags()
	f.String("input", "id_product.csv", "CSV or Excel file listing product identifiers")
	f.String("id-column", source.DefaultColumn, "column holding the identifiers")
	f.Bool("dedupe", false, "drop repeated identifiers (batch boundaries then differ from the input rows)")
	f.String("mode", string(collector.ModeCheckpointed), "run mode (checkpointed, streaming)")
	f.Int("batch-size", 1000, "identifiers per batch")
	f.Int("workers", dispatch.DefaultWorkers, "concurrent fetches (0 to size by CPU)")
	f.Int("workers-per-cpu", 0, "workers per CPU when --workers is 0")
	f.Int("progress-every", 100, "log progress every N outcomes (0 disables)")
	f.String("base-url", client.DefaultBaseURL, "product endpoint")
	f.String("user-agent", client.DefaultUserAgent, "User-Agent header")
	f.Duration("timeout", 15*time.Second, "per-request timeout")
	f.Int("max-attempts", 5, "attempts per identifier")
	f.Duration("retry-delay", 2*time.Second, "delay between attempts")
	f.String("output-dir", "output_raw", "local output directory")
	f.String("error-dir", "", "error CSV directory (default <output-dir>/error)")
	f.String("storage", sink.StorageFS, "product batch storage (fs, s3, gcs)")
	f.String("bucket", "", "bucket for s3 and gcs storage")
	f.String("prefix", "", "object key prefix")
	f.String("region", "us-east-1", "s3 region")
	f.String("endpoint", "", "s3-compatible endpoint")
	f.String("checkpoint-backend", "file", "checkpoint backend (file, redis)")
	f.String("checkpoint-path", "", "checkpoint file (default <output-dir>/checkpoint/checkpoint.txt)")
	f.String("checkpoint-key", checkpoint.DefaultRedisKey, "checkpoint key for the redis backend")
	f.String("redis-addr", "localhost:6379", "redis address")
	f.String("redis-password", "", "redis password")
	f.Int("redis-db", 0, "redis database")
	f.Bool("cache", false, "cache fetched products in redis")
	f.Duration("cache-ttl", 24*time.Hour, "product cache TTL")
	f.String("metrics-addr", "", "serve Prometheus metrics on this address")
	f.BoolVar(&resetCheckpoint, "reset-checkpoint", false, "start again from batch 1")

	for name, key := range flagKeys {
		mustBind(a.v, key, f.Lookup(name))
	}
	return cmd
}

func mustBind(v *viper.Viper, key string, flag *pflag.Flag) {
	if err := v.BindPFlag(key, flag); err != nil {
		panic(fmt.Sprintf("bind flag %s: %v", key, err))
	}
}

func runCollect(ctx context.Context, out io.Writer, cfg *config.Config, resetCheckpoint bool) error {
	logger := logging.NewLogger(logging.ComponentCLI)

	if cfg.Metrics.Addr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Error().Err(err).Msg("Metrics server failed")
			}
		}()
	}

	var redisClient *redis.Client
	if cfg.NeedsRedis() {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("connect to redis at %s: %w", cfg.Redis.Addr, err)
		}
		logger.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	clientCfg := client.Config{
		BaseURL:     cfg.API.BaseURL,
		UserAgent:   cfg.API.UserAgent,
		Timeout:     cfg.API.Timeout,
		MaxAttempts: cfg.API.MaxAttempts,
		RetryDelay:  cfg.API.RetryDelay,
	}
	if cfg.Cache.Enabled {
		clientCfg.Cache = cache.NewManager(redisClient, cfg.Cache.TTL)
	}
	productClient, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}

	store, err := sink.NewObjectStore(ctx, sink.StorageConfig{
		Type:      cfg.Storage.Type,
		LocalPath: cfg.Output.Dir,
		Bucket:    cfg.Storage.Bucket,
		Prefix:    cfg.Storage.Prefix,
		Region:    cfg.Storage.Region,
		Endpoint:  cfg.Storage.Endpoint,
	})
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	writer := sink.NewWriter(store, cfg.Output.ErrorDir)
	defer writer.Close()

	mode := collector.Mode(cfg.Mode)
	var progress checkpoint.Store
	if mode == collector.ModeCheckpointed {
		progress, err = openCheckpoint(ctx, cfg, redisClient, resetCheckpoint)
		if err != nil {
			return err
		}
	}

	ids, err := source.ReadIDs(cfg.Input, source.Options{Column: cfg.IDColumn, Dedupe: cfg.Dedupe})
	if err != nil {
		return fmt.Errorf("read identifiers: %w", err)
	}

	c, err := collector.New(collector.Config{
		Mode:          mode,
		BatchSize:     cfg.BatchSize,
		Workers:       dispatch.WorkersFor(cfg.Workers, cfg.WorkersPerCPU),
		ProgressEvery: cfg.ProgressEvery,
	}, productClient, writer, progress)
	if err != nil {
		return err
	}

	summary, err := c.Run(ctx, ids)
	printSummary(out, summary, writer.ErrorPaths())
	if collector.IsInterrupted(err) && ctx.Err() != nil {
		return fmt.Errorf("interrupted: %w", err)
	}
	return err
}

func openCheckpoint(ctx context.Context, cfg *config.Config, redisClient *redis.Client, reset bool) (checkpoint.Store, error) {
	switch cfg.Checkpoint.Backend {
	case "redis":
		s := checkpoint.NewRedisStore(redisClient, cfg.Checkpoint.RedisKey)
		if reset {
			if err := s.Clear(ctx); err != nil {
				return nil, fmt.Errorf("reset checkpoint: %w", err)
			}
		}
		return s, nil
	default:
		s := checkpoint.NewFileStore(cfg.Checkpoint.Path)
		if reset {
			if err := s.Clear(); err != nil {
				return nil, fmt.Errorf("reset checkpoint: %w", err)
			}
		}
		return s, nil
	}
}

func printSummary(out io.Writer, s collector.Summary, errorPaths []string) {
	title := color.New(color.FgCyan, color.Bold)
	label := color.New(color.FgGreen)

	title.Fprintf(out, "Run summary (%s)\n", s.Mode)
	if s.RunID != "" {
		label.Fprint(out, "Run ID:      ")
		fmt.Fprintln(out, s.RunID)
	}
	if s.Mode == collector.ModeCheckpointed {
		label.Fprint(out, "Batches:     ")
		fmt.Fprintf(out, "%d (started at %d, next %d)\n", s.Batches, s.StartBatch, s.NextBatch)
	} else {
		label.Fprint(out, "Batches:     ")
		fmt.Fprintf(out, "%d\n", s.Batches)
	}

	label.Fprint(out, "Products:    ")
	fmt.Fprintln(out, color.GreenString("%d", s.Counts.Products))

	failures := []struct {
		name  string
		count int
	}{
		{"Not found:   ", s.Counts.NotFound},
		{"HTTP errors: ", s.Counts.HTTPErrors},
		{"Timeouts:    ", s.Counts.Timeouts},
	}
	for _, f := range failures {
		label.Fprint(out, f.name)
		if f.count > 0 {
			fmt.Fprintln(out, color.YellowString("%d", f.count))
		} else {
			fmt.Fprintln(out, f.count)
		}
	}

	if s.Counts.Failures() > 0 {
		label.Fprint(out, "Error files: ")
		fmt.Fprintln(out, errorPaths)
	}

	fmt.Fprintf(out, "Completed in %.2f seconds\n", s.Duration.Seconds())
}
