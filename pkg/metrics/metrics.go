// Package metrics exposes the collector's Prometheus metrics.
// All metrics are defined in their respective packages (client, batch, sink,
// checkpoint, cache) to maintain modularity and avoid circular dependencies.
//
// This package provides the HTTP handler and documentation for all metrics.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// Registry is the default Prometheus registry used by the collector.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler returns the HTTP handler serving the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Serve exposes /metrics on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Msg("Serving metrics")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - collector_requests_total{status} (Counter): HTTP responses by status code, network_error for transport failures
//   - collector_request_duration_seconds (Histogram): Fetch duration per identifier, retries included
//   - collector_errors_total{class} (Counter): Failed attempts by class (not_found, client, server, network)
//
// Retry Metrics (pkg/client):
//   - collector_retries_total{error_class} (Counter): Retry attempts by error class
//   - collector_retry_exhausted_total{error_class} (Counter): Identifiers that used every attempt
//
// Pipeline Metrics (pkg/batch, pkg/sink, pkg/checkpoint):
//   - collector_outcomes_total{status} (Counter): Classified outcomes (success, 404_error, http_error, timeout_error)
//   - collector_batches_persisted_total (Counter): Batches written to all four sinks
//   - collector_records_written_total{sink} (Counter): Records written per sink
//   - collector_checkpoint_batch (Gauge): Next batch recorded by the checkpoint store
//
// Cache Metrics (pkg/cache):
//   - collector_cache_hits_total (Counter): Products served from Redis
//   - collector_cache_misses_total (Counter): Cache misses
//   - collector_cache_errors_total{operation} (Counter): Cache operation errors
//
// Example Prometheus Queries:
//
//   # Not-found share
//   rate(collector_outcomes_total{status="404_error"}[5m]) / sum(rate(collector_outcomes_total[5m]))
//
//   # Retry pressure
//   sum(rate(collector_retries_total[5m])) by (error_class)
//
//   # P95 fetch latency
//   histogram_quantile(0.95, rate(collector_request_duration_seconds_bucket[5m]))
