package description

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"

	"github.com/Sternrassler/product-collector/internal/fsutil"
	"github.com/Sternrassler/product-collector/pkg/logging"
	"github.com/Sternrassler/product-collector/pkg/product"
	"github.com/Sternrassler/product-collector/pkg/sink"
	"golang.org/x/sync/errgroup"
)

// CleanProduct rewrites one product's description and merges its inline images.
func CleanProduct(p *product.Product) error {
	text, images, err := Clean(p.Description)
	if err != nil {
		return err
	}
	p.Description = text
	p.Images = MergeImages(p.Images, images)
	return nil
}

// ProcessFile cleans every product of a batch file and writes the result to out.
// It returns the number of products processed.
func ProcessFile(in, out string) (int, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", in, err)
	}

	var products []*product.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return 0, fmt.Errorf("decode %s: %w", in, err)
	}

	for _, p := range products {
		if p == nil {
			continue
		}
		if err := CleanProduct(p); err != nil {
			return 0, fmt.Errorf("%s: product %s: %w", in, p.ID, err)
		}
	}

	encoded, err := sink.EncodeProducts(products)
	if err != nil {
		return 0, fmt.Errorf("encode %s: %w", out, err)
	}
	if err := fsutil.WriteAtomic(out, encoded, 0o644); err != nil {
		return 0, err
	}
	return len(products), nil
}

// DirResult summarises a ProcessDir run.
type DirResult struct {
	Files    int
	Products int
}

// ProcessDir cleans every .json file directly inside inDir into outDir, keeping
// file names. Files are processed in parallel.
func ProcessDir(ctx context.Context, inDir, outDir string) (DirResult, error) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return DirResult{}, fmt.Errorf("list %s: %w", inDir, err)
	}

	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	logger := logging.NewLogger(logging.ComponentDescription)

	counts := make([]int, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, name := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			n, err := ProcessFile(filepath.Join(inDir, name), filepath.Join(outDir, name))
			if err != nil {
				return err
			}
			counts[i] = n
			logger.Debug().
				Str("file", name).
				Int("products", n).
				Msg("Cleaned batch file")
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return DirResult{}, err
	}

	result := DirResult{Files: len(files)}
	for _, n := range counts {
		result.Products += n
	}
	logger.Info().
		Str("in", inDir).
		Str("out", outDir).
		Int("files", result.Files).
		Int("products", result.Products).
		Msg("Descriptions cleaned")
	return result, nil
}
