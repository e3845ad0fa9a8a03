// Package source reads the identifier list the collector works through.
// Supported inputs are CSV files with a header row and Excel workbooks (.xlsx),
// whose first sheet is read the same way.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sternrassler/product-collector/pkg/logging"
	"github.com/xuri/excelize/v2"
)

// DefaultColumn is the header of the identifier column.
const DefaultColumn = "product_id"

// ErrColumnNotFound is returned when the header lacks the identifier column.
var ErrColumnNotFound = errors.New("identifier column not found")

// Options control how identifiers are read.
type Options struct {
	// Column is the header name of the identifier column (default product_id)
	Column string
	// Dedupe drops repeated identifiers, keeping the first occurrence
	Dedupe bool
}

// ReadIDs reads identifiers from path, choosing the format by extension.
// Blank identifiers are skipped.
func ReadIDs(path string, opts Options) ([]string, error) {
	var (
		ids []string
		err error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		ids, err = readXLSX(path, opts)
	default:
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open input %s: %w", path, err)
		}
		defer f.Close()
		ids, err = ReadCSV(f, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("read input %s: %w", path, err)
	}

	logger := logging.NewLogger(logging.ComponentSource)
	logger.Info().
		Str("path", path).
		Int("ids", len(ids)).
		Msg("Loaded identifiers")
	return ids, nil
}

// ReadCSV reads identifiers from CSV data with a header row.
func ReadCSV(r io.Reader, opts Options) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col, err := columnIndex(header, opts.Column)
	if err != nil {
		return nil, err
	}

	c := newCollector(opts.Dedupe)
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		if col < len(record) {
			c.add(record[col])
		}
	}
	return c.ids, nil
}

func readXLSX(path string, opts Options) ([]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil
	}

	rows, err := f.Rows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheets[0], err)
	}
	defer rows.Close()

	col := -1
	c := newCollector(opts.Dedupe)
	for rows.Next() {
		cells, err := rows.Columns()
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}

		if col < 0 {
			if col, err = columnIndex(cells, opts.Column); err != nil {
				return nil, err
			}
			continue
		}
		if col < len(cells) {
			c.add(cells[col])
		}
	}
	if err := rows.Error(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return c.ids, nil
}

func columnIndex(header []string, column string) (int, error) {
	if column == "" {
		column = DefaultColumn
	}
	for i, h := range header {
		// a UTF-8 BOM may precede the first header cell
		if strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) == column {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: %q in header %v", ErrColumnNotFound, column, header)
}

// idCollector accumulates trimmed, non-blank identifiers.
type idCollector struct {
	ids  []string
	seen map[string]struct{}
}

func newCollector(dedupe bool) *idCollector {
	c := &idCollector{}
	if dedupe {
		c.seen = make(map[string]struct{})
	}
	return c
}

func (c *idCollector) add(raw string) {
	id := strings.TrimSpace(raw)
	if id == "" {
		return
	}
	if c.seen != nil {
		if _, dup := c.seen[id]; dup {
			return
		}
		c.seen[id] = struct{}{}
	}
	c.ids = append(c.ids, id)
}
