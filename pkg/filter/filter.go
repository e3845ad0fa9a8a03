// Package filter splits previously logged error records into identifiers that
// do not exist (404) and identifiers worth collecting again.
package filter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Sternrassler/product-collector/internal/fsutil"
	"github.com/tidwall/gjson"
)

// NotFoundCode is the status code that marks an identifier as absent.
const NotFoundCode = 404

// Record is one logged failure. Code is 0 for timeout records.
type Record struct {
	ID   string
	Code int
}

// ReadErrorRecords reads every path and concatenates the records. CSV files
// carry a product_id column and an optional code column; JSON files hold an
// array of [id, code] pairs.
func ReadErrorRecords(paths ...string) ([]Record, error) {
	var all []Record
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var records []Record
		if strings.EqualFold(filepath.Ext(path), ".json") {
			records, err = parseJSON(data)
		} else {
			records, err = parseCSV(bytes.NewReader(data))
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		all = append(all, records...)
	}
	return all, nil
}

func parseJSON(data []byte) ([]Record, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}
	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, errors.New("expected an array of [id, code] pairs")
	}

	var records []Record
	var bad error
	root.ForEach(func(key, item gjson.Result) bool {
		pair := item.Array()
		if !item.IsArray() || len(pair) == 0 {
			bad = fmt.Errorf("entry %d: expected [id, code]", key.Int())
			return false
		}
		r := Record{ID: strings.TrimSpace(pair[0].String())}
		if len(pair) > 1 {
			r.Code = int(pair[1].Int())
		}
		if r.ID != "" {
			records = append(records, r)
		}
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return records, nil
}

func parseCSV(r io.Reader) ([]Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	idCol, codeCol := -1, -1
	for i, h := range header {
		switch strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")) {
		case "product_id":
			idCol = i
		case "code":
			codeCol = i
		}
	}
	if idCol < 0 {
		return nil, fmt.Errorf("missing product_id column in header %v", header)
	}

	var records []Record
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		if idCol >= len(row) || strings.TrimSpace(row[idCol]) == "" {
			continue
		}

		r := Record{ID: strings.TrimSpace(row[idCol])}
		if codeCol >= 0 && codeCol < len(row) && strings.TrimSpace(row[codeCol]) != "" {
			code, err := strconv.Atoi(strings.TrimSpace(row[codeCol]))
			if err != nil {
				return nil, fmt.Errorf("bad code %q for %s: %w", row[codeCol], r.ID, err)
			}
			r.Code = code
		}
		records = append(records, r)
	}
	return records, nil
}

// Split separates 404 identifiers from the rest. Both lists are deduplicated
// with first-seen order kept. An identifier reported as 404 anywhere is never
// listed for retry.
func Split(records []Record) (notFound, retry []string) {
	absent := make(map[string]struct{})
	for _, r := range records {
		if r.Code == NotFoundCode {
			if _, dup := absent[r.ID]; !dup {
				absent[r.ID] = struct{}{}
				notFound = append(notFound, r.ID)
			}
		}
	}

	seen := make(map[string]struct{})
	for _, r := range records {
		if _, gone := absent[r.ID]; gone {
			continue
		}
		if _, dup := seen[r.ID]; dup {
			continue
		}
		seen[r.ID] = struct{}{}
		retry = append(retry, r.ID)
	}
	return notFound, retry
}

// WriteIDList writes one identifier per line.
func WriteIDList(path string, ids []string) error {
	var buf bytes.Buffer
	for _, id := range ids {
		buf.WriteString(id)
		buf.WriteByte('\n')
	}
	return fsutil.WriteAtomic(path, buf.Bytes(), 0o644)
}

// WriteIDCSV writes identifiers under a product_id header, so the file can be
// fed back to the collector.
func WriteIDCSV(path string, ids []string) error {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"product_id"}); err != nil {
		return err
	}
	for _, id := range ids {
		if err := w.Write([]string{id}); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	return fsutil.WriteAtomic(path, buf.Bytes(), 0o644)
}
