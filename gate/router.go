package gate

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/category"
	"github.com/lexandro/contentsieve/item"
)

// maxCollisionSuffix bounds the search for a free destination name.
const maxCollisionSuffix = 100000

var ErrNoFreeName = errors.New("no free destination name")

// Router copies items into <root>/<category>/ and never overwrites an
// existing file. Originals are left untouched.
type Router struct {
	outDir     string
	archiveDir string
	logger     *zap.Logger
}

// NewRouter creates the output directory (and archive directory when set).
// Failing to create them is a setup error.
func NewRouter(outDir, archiveDir string, logger *zap.Logger) (*Router, error) {
	if outDir == "" {
		return nil, errors.New("output directory is required")
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	if archiveDir != "" {
		if err := os.MkdirAll(archiveDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating archive directory: %w", err)
		}
	}
	return &Router{outDir: outDir, archiveDir: archiveDir, logger: logger}, nil
}

func (r *Router) OutDir() string     { return r.outDir }
func (r *Router) ArchiveDir() string { return r.archiveDir }

// Archiving reports whether low-quality items are retained.
func (r *Router) Archiving() bool {
	return r.archiveDir != ""
}

// Place copies an accepted item into the output tree.
func (r *Router) Place(it *item.Item) (string, error) {
	return r.copyInto(r.outDir, it)
}

// Archive copies a rejected item into the archive tree. Without an archive
// directory it does nothing and returns "".
func (r *Router) Archive(it *item.Item) (string, error) {
	if r.archiveDir == "" {
		return "", nil
	}
	return r.copyInto(r.archiveDir, it)
}

func (r *Router) copyInto(base string, it *item.Item) (string, error) {
	cat := it.Category
	if cat == "" {
		cat = category.Other
	}
	dir := filepath.Join(base, cat)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating %s: %w", dir, err)
	}
	dest, err := CopyNoClobber(it.Path, dir, it.Name)
	if err != nil {
		return "", err
	}
	r.logger.Debug("copied item", zap.String("path", it.Path), zap.String("destination", dest))
	return dest, nil
}

// CopyNoClobber copies src into dir under name, or name_1.ext, name_2.ext, ...
// when taken. Destinations are created with O_EXCL so an existing file is
// never overwritten, even by a concurrent writer. The source mtime is kept.
func CopyNoClobber(src, dir, name string) (string, error) {
	in, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("opening source: %w", err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	for n := 0; n <= maxCollisionSuffix; n++ {
		dest := filepath.Join(dir, CandidateName(name, n))
		out, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("creating destination: %w", err)
		}

		if _, err := io.Copy(out, in); err != nil {
			out.Close()
			os.Remove(dest)
			return "", fmt.Errorf("copying to %s: %w", dest, err)
		}
		if err := out.Close(); err != nil {
			os.Remove(dest)
			return "", fmt.Errorf("closing %s: %w", dest, err)
		}
		os.Chtimes(dest, info.ModTime(), info.ModTime())
		return dest, nil
	}
	return "", fmt.Errorf("%w for %s in %s", ErrNoFreeName, name, dir)
}

// CandidateName returns name for n == 0 and name_n.ext otherwise.
// Dot files keep their leading dot: .env becomes .env_1.
func CandidateName(name string, n int) string {
	if n == 0 {
		return name
	}
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	if stem == "" {
		stem, ext = name, ""
	}
	return stem + "_" + strconv.Itoa(n) + ext
}
