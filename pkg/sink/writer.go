package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/Sternrassler/product-collector/pkg/batch"
	"github.com/Sternrassler/product-collector/pkg/logging"
	"github.com/Sternrassler/product-collector/pkg/product"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var (
	batchesPersisted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "collector_batches_persisted_total",
		Help: "Total product batches fully persisted",
	})

	recordsWritten = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "collector_records_written_total",
		Help: "Total records written by sink",
	}, []string{"sink"})
)

// DefaultErrorDir is the error table directory used when none is configured.
const DefaultErrorDir = "output_raw/error"

// Writer persists one batch across the four sinks.
type Writer struct {
	store    ObjectStore
	notFound errorTable
	http     errorTable
	timeout  errorTable
	logger   zerolog.Logger
}

// NewWriter creates a writer storing product batches in store and error
// tables below errorDir.
func NewWriter(store ObjectStore, errorDir string) *Writer {
	if errorDir == "" {
		errorDir = DefaultErrorDir
	}
	return &Writer{
		store:    store,
		notFound: errorTable{path: filepath.Join(errorDir, NotFoundFile), withCode: true},
		http:     errorTable{path: filepath.Join(errorDir, HTTPErrorFile), withCode: true},
		timeout:  errorTable{path: filepath.Join(errorDir, TimeoutFile)},
		logger:   logging.NewLogger(logging.ComponentSink),
	}
}

// ProductKey returns the object key of a product batch.
func ProductKey(n int) string {
	return fmt.Sprintf("products_batch_%d.json", n)
}

// EncodeProducts renders products as an indented JSON array with non-ASCII and
// HTML characters kept verbatim.
func EncodeProducts(products []*product.Product) ([]byte, error) {
	if products == nil {
		products = []*product.Product{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(products); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteProducts writes batch n, replacing any earlier write of the same batch.
func (w *Writer) WriteProducts(ctx context.Context, n int, products []*product.Product) error {
	data, err := EncodeProducts(products)
	if err != nil {
		return fmt.Errorf("encode batch %d: %w", n, err)
	}

	key := ProductKey(n)
	if err := w.store.Write(ctx, key, data); err != nil {
		return fmt.Errorf("write batch %d: %w", n, err)
	}

	recordsWritten.WithLabelValues("products").Add(float64(len(products)))
	w.logger.Info().
		Int("batch", n).
		Int("products", len(products)).
		Str("key", key).
		Msg("Saved product batch")
	return nil
}

// AppendNotFound appends 404 records.
func (w *Writer) AppendNotFound(records []batch.ErrorRecord) error {
	return w.appendTo(w.notFound, "not_found", records)
}

// AppendHTTPErrors appends non-404 HTTP error records.
func (w *Writer) AppendHTTPErrors(records []batch.ErrorRecord) error {
	return w.appendTo(w.http, "http_error", records)
}

// AppendTimeouts appends transport failure records.
func (w *Writer) AppendTimeouts(records []batch.ErrorRecord) error {
	return w.appendTo(w.timeout, "timeout", records)
}

func (w *Writer) appendTo(t errorTable, name string, records []batch.ErrorRecord) error {
	if err := t.appendRecords(records); err != nil {
		return err
	}
	recordsWritten.WithLabelValues(name).Add(float64(len(records)))
	w.logger.Debug().
		Str("sink", name).
		Int("records", len(records)).
		Str("path", t.path).
		Msg("Appended error records")
	return nil
}

// Persist writes the product file of batch n and appends its failures to the
// three error tables. The sinks are written concurrently; Persist returns nil
// only when all four writes succeeded.
func (w *Writer) Persist(ctx context.Context, n int, p *batch.Partition) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return w.WriteProducts(gctx, n, p.Products)
	})
	g.Go(func() error {
		return w.AppendNotFound(p.NotFound)
	})
	g.Go(func() error {
		return w.AppendHTTPErrors(p.HTTPErrors)
	})
	g.Go(func() error {
		return w.AppendTimeouts(p.Timeouts)
	})

	if err := g.Wait(); err != nil {
		return fmt.Errorf("persist batch %d: %w", n, err)
	}

	batchesPersisted.Inc()
	return nil
}

// PersistErrors appends a partition's failures only.
func (w *Writer) PersistErrors(p *batch.Partition) error {
	var g errgroup.Group
	g.Go(func() error { return w.AppendNotFound(p.NotFound) })
	g.Go(func() error { return w.AppendHTTPErrors(p.HTTPErrors) })
	g.Go(func() error { return w.AppendTimeouts(p.Timeouts) })
	return g.Wait()
}

// Reset removes the three error tables.
func (w *Writer) Reset() error {
	for _, t := range []errorTable{w.notFound, w.http, w.timeout} {
		if err := t.truncate(); err != nil {
			return err
		}
	}
	return nil
}

// ErrorPaths returns the error table paths (404, http, timeout).
func (w *Writer) ErrorPaths() []string {
	return []string{w.notFound.path, w.http.path, w.timeout.path}
}

// Close releases the object store.
func (w *Writer) Close() error {
	return w.store.Close()
}
