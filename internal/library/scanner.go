package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"optipress/internal/batch"
	"optipress/internal/config"
)

// convertibleExtensions lists the raster source types the scanner offers for
// conversion.
var convertibleExtensions = map[string]struct{}{
	".jpg":  {},
	".jpeg": {},
	".png":  {},
}

// Scanner resolves convertible items from a library directory tree. Item IDs
// are paths relative to the library root, which keeps them stable across
// daemon restarts and readable in progress output.
type Scanner struct {
	root string
}

// NewScanner constructs a scanner over the configured library directory.
func NewScanner(cfg *config.Config) *Scanner {
	return &Scanner{root: cfg.Paths.LibraryDir}
}

// ListCandidates walks the library and returns convertible items in stable
// path order, applying offset then limit. A limit of 0 means no limit.
func (s *Scanner) ListCandidates(ctx context.Context, limit, offset int) ([]batch.ItemRef, error) {
	var refs []batch.ItemRef
	err := filepath.WalkDir(s.root, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if entry == nil && errors.Is(walkErr, fs.ErrNotExist) {
				return walkErr
			}
			// Unreadable subtrees are skipped rather than failing the listing.
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := convertibleExtensions[ext]; !ok {
			return nil
		}
		info, err := entry.Info()
		if err != nil {
			return nil
		}
		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return nil
		}
		refs = append(refs, batch.ItemRef{ID: rel, Path: path, Size: info.Size()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan library: %w", err)
	}

	sort.Slice(refs, func(a, b int) bool { return refs[a].ID < refs[b].ID })

	if offset > 0 {
		if offset >= len(refs) {
			return nil, nil
		}
		refs = refs[offset:]
	}
	if limit > 0 && limit < len(refs) {
		refs = refs[:limit]
	}
	return refs, nil
}

// Resolve maps an item ID back to its source file, verifying it still exists
// and is convertible.
func (s *Scanner) Resolve(_ context.Context, itemID string) (batch.ItemRef, error) {
	cleaned := filepath.Clean(itemID)
	if cleaned == "." || strings.HasPrefix(cleaned, "..") || filepath.IsAbs(cleaned) {
		return batch.ItemRef{}, fmt.Errorf("%w: invalid item id %q", batch.ErrSourceMissing, itemID)
	}
	ext := strings.ToLower(filepath.Ext(cleaned))
	if _, ok := convertibleExtensions[ext]; !ok {
		return batch.ItemRef{}, fmt.Errorf("%w: %q is not a convertible image", batch.ErrSourceMissing, itemID)
	}

	path := filepath.Join(s.root, cleaned)
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return batch.ItemRef{}, fmt.Errorf("%w: %s", batch.ErrSourceMissing, path)
		}
		return batch.ItemRef{}, fmt.Errorf("stat item: %w", err)
	}
	if info.IsDir() {
		return batch.ItemRef{}, fmt.Errorf("%w: %s is a directory", batch.ErrSourceMissing, path)
	}
	return batch.ItemRef{ID: cleaned, Path: path, Size: info.Size()}, nil
}

// HasConverted reports whether an output for the given format already exists
// next to the source.
func (s *Scanner) HasConverted(path string, format batch.Format) bool {
	info, err := os.Stat(path + "." + string(format))
	return err == nil && !info.IsDir()
}
