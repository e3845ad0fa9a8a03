// Package client provides the product API client: one request per identifier,
// a bounded fixed-delay retry loop, and classification of every result into a
// product.Outcome.
package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Sternrassler/product-collector/pkg/cache"
	"github.com/Sternrassler/product-collector/pkg/logging"
	"github.com/Sternrassler/product-collector/pkg/product"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for API requests.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_requests_total",
		Help: "Total product API requests by status",
	}, []string{"status"})

	requestDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "collector_request_duration_seconds",
		Help:    "Product fetch duration in seconds, retries included",
		Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
	})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_errors_total",
		Help: "Total failed attempts by error class",
	}, []string{"class"})
)

const (
	// DefaultBaseURL is the product detail endpoint; the identifier is appended as a path segment.
	DefaultBaseURL = "https://api.tiki.vn/product-detail/api/v1/products"

	// DefaultUserAgent identifies requests as a regular browser.
	DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/112.0.0.0 Safari/537.36"

	// maxBodySize bounds how much of a response body is read.
	maxBodySize = 16 << 20
)

// Client fetches products from the remote API.
type Client struct {
	httpClient *http.Client
	cache      *cache.Manager
	config     Config
	logger     zerolog.Logger
}

// Config holds the client configuration.
type Config struct {
	// BaseURL is the product endpoint, e.g. https://api.example.com/v1/products
	BaseURL string

	// UserAgent header sent with every request
	UserAgent string

	// Timeout per HTTP request
	Timeout time.Duration

	// Retry
	MaxAttempts int
	RetryDelay  time.Duration

	// Cache is optional; successes are served from and written to it
	Cache *cache.Manager
}

// DefaultConfig returns a safe default configuration.
func DefaultConfig() Config {
	retry := DefaultRetryConfig()
	return Config{
		BaseURL:     DefaultBaseURL,
		UserAgent:   DefaultUserAgent,
		Timeout:     15 * time.Second,
		MaxAttempts: retry.MaxAttempts,
		RetryDelay:  retry.Delay,
	}
}

// New creates a new product API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url is required")
	}
	if u, err := url.Parse(cfg.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base url %q", cfg.BaseURL)
	}

	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("max_attempts must be >= 1 (got %d)", cfg.MaxAttempts)
	}

	if cfg.RetryDelay < 0 {
		return nil, fmt.Errorf("retry_delay must not be negative (got %s)", cfg.RetryDelay)
	}

	if cfg.Timeout <= 0 {
		return nil, fmt.Errorf("timeout must be positive (got %s)", cfg.Timeout)
	}

	logger := logging.NewLogger(logging.ComponentClient)

	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache:  cfg.Cache,
		config: cfg,
		logger: logger,
	}, nil
}

// Fetch retrieves one product and classifies the result. It never returns an
// error: every failure is folded into the returned outcome. Only a 200 response
// is a success; any other status, 2xx included, is retried like a server error.
// Cancellation of ctx always yields a timeout outcome.
func (c *Client) Fetch(ctx context.Context, id string) product.Outcome {
	startTime := time.Now()
	defer func() {
		requestDuration.Observe(time.Since(startTime).Seconds())
	}()

	if p, ok := c.fromCache(ctx, id); ok {
		return product.Success(id, p, 0)
	}

	retry := RetryConfig{MaxAttempts: c.config.MaxAttempts, Delay: c.config.RetryDelay}
	logger := c.logger.With().Str("product_id", id).Logger()

	var fetched *product.Product
	attempts, err := retryWithDelay(ctx, retry, logger, func(attempt int) error {
		p, err := c.fetchOnce(ctx, id)
		if err != nil {
			errorsTotal.WithLabelValues(string(errorClassOf(err))).Inc()
			logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Msg("Product fetch attempt failed")
			return err
		}
		fetched = p
		return nil
	})

	if err == nil {
		c.toCache(ctx, id, fetched)
		return product.Success(id, fetched, attempts)
	}

	return classifyOutcome(id, attempts, err)
}

// classifyOutcome turns the final error of the retry loop into an outcome.
// The variant follows the last observed failure.
func classifyOutcome(id string, attempts int, err error) product.Outcome {
	if errors.Is(err, ErrContextCancelled) {
		return product.Timeout(id, attempts, err)
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		return product.Timeout(id, attempts, err)
	}

	switch fe.ErrorClass {
	case ErrorClassNotFound:
		return product.NotFound(id, attempts)
	case ErrorClassClient, ErrorClassServer:
		return product.HTTPError(id, fe.StatusCode, attempts, err)
	default:
		return product.Timeout(id, attempts, err)
	}
}

// fetchOnce performs exactly one HTTP request.
func (c *Client) fetchOnce(ctx context.Context, id string) (*product.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.productURL(id), nil)
	if err != nil {
		return nil, &FetchError{ID: id, ErrorClass: ErrorClassNetwork, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("User-Agent", c.config.UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		requestsTotal.WithLabelValues("network_error").Inc()
		return nil, &FetchError{ID: id, ErrorClass: ErrorClassNetwork, Err: err}
	}
	defer resp.Body.Close()

	requestsTotal.WithLabelValues(strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		// Drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodySize))
		return nil, &FetchError{
			ID:         id,
			StatusCode: resp.StatusCode,
			ErrorClass: classifyStatus(resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, &FetchError{
			ID:         id,
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassNetwork,
			Err:        fmt.Errorf("read response body: %w", err),
		}
	}

	return ParseProduct(body, id), nil
}

// productURL joins the base URL and the escaped identifier.
func (c *Client) productURL(id string) string {
	return strings.TrimRight(c.config.BaseURL, "/") + "/" + url.PathEscape(id)
}

func (c *Client) fromCache(ctx context.Context, id string) (*product.Product, bool) {
	if c.cache == nil {
		return nil, false
	}

	entry, err := c.cache.Get(ctx, c.cache.Key(id))
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			c.logger.Warn().Err(err).Str("product_id", id).Msg("Cache get error")
		}
		return nil, false
	}

	c.logger.Debug().Str("product_id", id).Msg("Serving product from cache")
	return entry.Product, true
}

func (c *Client) toCache(ctx context.Context, id string, p *product.Product) {
	if c.cache == nil || p == nil {
		return
	}
	if err := c.cache.Set(ctx, c.cache.Key(id), cache.NewEntry(p, c.cache.TTL())); err != nil {
		c.logger.Warn().Err(err).Str("product_id", id).Msg("Failed to cache product")
	}
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}

// Config returns the configuration the client was built with.
func (c *Client) Config() Config {
	return c.config
}
