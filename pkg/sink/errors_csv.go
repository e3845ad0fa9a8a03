package sink

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/Sternrassler/product-collector/pkg/batch"
)

// Error table file names, relative to the error directory.
const (
	NotFoundFile   = "error_404_code.csv"
	HTTPErrorFile  = "http_error.csv"
	TimeoutFile    = "timeout_error.csv"
	idColumn       = "product_id"
	codeColumn     = "code"
	errorTablePerm = 0o644
)

// errorTable is one append-only CSV file.
type errorTable struct {
	path     string
	withCode bool
}

func (t errorTable) header() []string {
	if t.withCode {
		return []string{idColumn, codeColumn}
	}
	return []string{idColumn}
}

// appendRecords appends rows, writing the header first when the file is new or
// empty. The file is synced before returning.
func (t errorTable) appendRecords(records []batch.ErrorRecord) error {
	if err := os.MkdirAll(filepath.Dir(t.path), 0o755); err != nil {
		return fmt.Errorf("create error directory: %w", err)
	}

	f, err := os.OpenFile(t.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, errorTablePerm)
	if err != nil {
		return fmt.Errorf("open %s: %w", t.path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return fmt.Errorf("stat %s: %w", t.path, err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(t.header()); err != nil {
			f.Close()
			return fmt.Errorf("write header to %s: %w", t.path, err)
		}
	}

	for _, r := range records {
		row := []string{r.ID}
		if t.withCode {
			row = append(row, strconv.Itoa(r.Code))
		}
		if err := w.Write(row); err != nil {
			f.Close()
			return fmt.Errorf("write row to %s: %w", t.path, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("flush %s: %w", t.path, err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("sync %s: %w", t.path, err)
	}
	return f.Close()
}

// truncate removes the table so the next append starts with a fresh header.
func (t errorTable) truncate() error {
	if err := os.Remove(t.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", t.path, err)
	}
	return nil
}
