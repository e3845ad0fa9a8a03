// Package testutil provides testing utilities for the product collector.
package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"
)

// MockResponse defines the behavior for one mocked product response.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockAPI is a configurable mock product API for testing.
// Requests are served under /products/{id}. Each id can carry a script of
// responses that is consumed one attempt at a time; the last entry repeats.
type MockAPI struct {
	server  *httptest.Server
	mu      sync.RWMutex
	scripts map[string][]MockResponse

	// Tracking
	RequestCount      int
	attempts          map[string]int
	LastRequestHeader http.Header
}

// ProductsPath is the path prefix the mock serves products under.
const ProductsPath = "/products/"

// NewMockAPI creates a new mock product API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		scripts:  make(map[string][]MockResponse),
		attempts: make(map[string]int),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, ProductsPath)

		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		attempt := mock.attempts[id]
		mock.attempts[id]++
		script, exists := mock.scripts[id]
		mock.mu.Unlock()

		if !exists || len(script) == 0 {
			mock.defaultHandler(w, id)
			return
		}

		if attempt >= len(script) {
			attempt = len(script) - 1
		}
		writeResponse(w, r, script[attempt])
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// BaseURL returns the product endpoint to configure a client with.
func (m *MockAPI) BaseURL() string {
	return m.server.URL + strings.TrimSuffix(ProductsPath, "/")
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.attempts = make(map[string]int)
	m.LastRequestHeader = nil
}

// SetResponses scripts the responses for one product id, one per attempt.
func (m *MockAPI) SetResponses(id string, responses ...MockResponse) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scripts[id] = responses
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockAPI) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// Attempts returns how many requests were made for id.
func (m *MockAPI) Attempts(id string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.attempts[id]
}

// LastHeader returns the headers of the most recent request.
func (m *MockAPI) LastHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader
}

// defaultHandler answers any unscripted id with a minimal product.
func (m *MockAPI) defaultHandler(w http.ResponseWriter, id string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"id": %q, "name": "product %s", "url_key": "product-%s", "price": 1000, "description": "", "images": []}`, id, id, id)
}

func writeResponse(w http.ResponseWriter, r *http.Request, resp MockResponse) {
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	for key, value := range resp.Headers {
		w.Header().Set(key, value)
	}

	w.WriteHeader(resp.StatusCode)
	if resp.Body != "" {
		w.Write([]byte(resp.Body))
	}
}

// NewProductResponse creates a 200 OK response carrying a product body.
func NewProductResponse(body string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       body,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewNotFoundResponse creates a 404 Not Found response.
func NewNotFoundResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       `{"error": {"code": 404, "message": "product not found"}}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"error": "Rate limit exceeded"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"error": "Internal server error"}`,
		Headers: map[string]string{
			"Content-Type": "application/json; charset=utf-8",
		},
	}
}

// NewSlowResponse creates a 200 OK response delayed by d.
func NewSlowResponse(d time.Duration) MockResponse {
	resp := NewProductResponse(`{"id": 1}`)
	resp.Delay = d
	return resp
}
