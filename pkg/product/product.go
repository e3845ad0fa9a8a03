// Package product defines the product record collected from the remote API and
// the classified outcome of fetching one identifier.
package product

import (
	"encoding/json"
)

// Product is one successfully fetched catalog record.
type Product struct {
	// ID is the identifier as reported by the remote API (usually a JSON number).
	ID json.RawMessage `json:"id"`

	// Name is the display name of the product.
	Name string `json:"name"`

	// URLKey is the slug used by the storefront.
	URLKey string `json:"url_key"`

	// Price is nil when the API did not report one.
	Price *float64 `json:"price"`

	// Description is the raw HTML description.
	Description string `json:"description"`

	// Images is the ordered list of image URLs, never nil.
	Images []string `json:"images"`
}

// Status tags which variant an Outcome holds.
type Status string

const (
	// StatusSuccess means the product was fetched and parsed.
	StatusSuccess Status = "success"

	// StatusNotFound means the API answered 404. Never retried.
	StatusNotFound Status = "404_error"

	// StatusHTTPError means a non-404 error status persisted through every attempt.
	StatusHTTPError Status = "http_error"

	// StatusTimeout means no usable response was obtained on the last attempt.
	StatusTimeout Status = "timeout_error"
)

// Outcome is the classified result of fetching one identifier.
// Exactly one of the Status variants holds; Product is set only for StatusSuccess
// and StatusCode only for StatusNotFound and StatusHTTPError.
type Outcome struct {
	ID         string
	Status     Status
	StatusCode int
	Attempts   int
	Product    *Product

	// Err is the last underlying failure, kept for logging only.
	Err error
}

// Success builds a success outcome for id.
func Success(id string, p *Product, attempts int) Outcome {
	return Outcome{ID: id, Status: StatusSuccess, Product: p, Attempts: attempts}
}

// NotFound builds a 404 outcome for id.
func NotFound(id string, attempts int) Outcome {
	return Outcome{ID: id, Status: StatusNotFound, StatusCode: 404, Attempts: attempts}
}

// HTTPError builds an outcome for a persistent non-404 error status.
func HTTPError(id string, statusCode, attempts int, err error) Outcome {
	return Outcome{ID: id, Status: StatusHTTPError, StatusCode: statusCode, Attempts: attempts, Err: err}
}

// Timeout builds an outcome for a transport-level failure.
func Timeout(id string, attempts int, err error) Outcome {
	return Outcome{ID: id, Status: StatusTimeout, Attempts: attempts, Err: err}
}

// IsSuccess reports whether the outcome carries a product.
func (o Outcome) IsSuccess() bool {
	return o.Status == StatusSuccess && o.Product != nil
}

// RawID encodes an identifier for use as Product.ID when the API response did
// not carry one. Purely numeric identifiers stay numbers, anything else becomes
// a JSON string.
func RawID(id string) json.RawMessage {
	if isDigits(id) {
		return json.RawMessage(id)
	}
	data, err := json.Marshal(id)
	if err != nil {
		return json.RawMessage(`""`)
	}
	return data
}

func isDigits(s string) bool {
	if s == "" || (len(s) > 1 && s[0] == '0') {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
