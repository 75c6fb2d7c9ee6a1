// Package scanner discovers candidate files under one or more roots.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/category"
	"github.com/lexandro/contentsieve/ignore"
	"github.com/lexandro/contentsieve/item"
	"github.com/lexandro/contentsieve/metrics"
)

var (
	ErrRootMissing  = errors.New("root does not exist")
	ErrInaccessible = errors.New("inaccessible entry")
)

// Options configures a scan.
type Options struct {
	Roots          []string
	SkipPatterns   []string
	ExcludeDirs    []string
	MaxItemBytes   int64 // <= 0 disables the limit
	NoDefaultSkips bool
}

// Scanner walks roots depth-first and collects regular files.
type Scanner struct {
	options  Options
	matchers []*ignore.Matcher
	roots    []string
	logger   *zap.Logger
}

// New resolves the roots and builds one ignore matcher per root.
// Roots that do not exist are kept; Scan reports them as warnings.
func New(options Options, logger *zap.Logger) (*Scanner, error) {
	s := &Scanner{options: options, logger: logger}
	for _, root := range options.Roots {
		abs, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolving root %s: %w", root, err)
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		matcher, err := ignore.NewMatcher(ignore.MatcherOptions{
			RootDir:          abs,
			SkipPatterns:     options.SkipPatterns,
			ExcludeDirs:      options.ExcludeDirs,
			MaxFileSizeBytes: options.MaxItemBytes,
			NoDefaults:       options.NoDefaultSkips,
		})
		if err != nil {
			return nil, err
		}
		s.roots = append(s.roots, abs)
		s.matchers = append(s.matchers, matcher)
	}
	return s, nil
}

// Matchers exposes the per-root matchers so the watcher can reuse them.
func (s *Scanner) Matchers() []*ignore.Matcher {
	return s.matchers
}

// Roots returns the resolved absolute roots.
func (s *Scanner) Roots() []string {
	return s.roots
}

// Scan walks every root. Non-fatal problems (missing roots, permission errors,
// symlinks and special files) are recorded on run and never abort the scan.
// Counters on run are updated as each item is found. On cancellation the
// items found so far are returned together with the context error.
func (s *Scanner) Scan(ctx context.Context, run *metrics.Run, progress metrics.ProgressFunc) ([]*item.Item, error) {
	var items []*item.Item
	seen := make(map[string]bool)

	for rootIndex, root := range s.roots {
		if err := ctx.Err(); err != nil {
			return items, err
		}

		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			s.logger.Warn("root not found, skipping", zap.String("root", root))
			run.RecordError("scan", root, ErrRootMissing)
			continue
		}

		matcher := s.matchers[rootIndex]
		walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if err != nil {
				s.logger.Debug("scan error", zap.String("path", path), zap.Error(err))
				run.RecordError("scan", path, err)
				if d != nil && d.IsDir() && path != root {
					return filepath.SkipDir
				}
				return nil
			}

			if d.IsDir() {
				if path != root && matcher.ShouldIgnoreDir(path) {
					return filepath.SkipDir
				}
				return nil
			}
			if matcher.ShouldIgnore(path, false) {
				return nil
			}
			if !d.Type().IsRegular() {
				run.RecordError("scan", path, fmt.Errorf("%w: %s", ErrInaccessible, describeMode(d.Type())))
				return nil
			}
			if seen[path] {
				return nil
			}

			fileInfo, err := d.Info()
			if err != nil {
				run.RecordError("scan", path, err)
				return nil
			}
			if matcher.IsFileTooLarge(fileInfo.Size()) {
				s.logger.Debug("skipping oversized file", zap.String("path", path), zap.Int64("size", fileInfo.Size()))
				return nil
			}

			seen[path] = true
			items = append(items, newItem(rootIndex, root, path, fileInfo))
			run.AddScanned(fileInfo.Size())
			progress.Emit(metrics.Event{Phase: metrics.PhaseScan, Done: len(items), Ref: path})
			return nil
		})
		if walkErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return items, ctxErr
			}
			run.RecordError("scan", root, walkErr)
		}
	}

	s.logger.Info("scan complete", zap.Int("items", len(items)), zap.Int("roots", len(s.roots)))
	return items, nil
}

// Stat builds an item for a single file, applying the same rules as Scan.
// It returns nil when the file is skipped.
func (s *Scanner) Stat(path string) (*item.Item, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	for rootIndex, root := range s.roots {
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			continue
		}
		matcher := s.matchers[rootIndex]
		if matcher.ShouldIgnore(abs, false) {
			return nil, nil
		}
		info, err := os.Lstat(abs)
		if err != nil {
			return nil, err
		}
		if !info.Mode().IsRegular() {
			return nil, fmt.Errorf("%w: %s", ErrInaccessible, describeMode(info.Mode().Type()))
		}
		if matcher.IsFileTooLarge(info.Size()) {
			return nil, nil
		}
		return newItem(rootIndex, root, abs, info), nil
	}
	return nil, nil
}

func newItem(rootIndex int, root, path string, info fs.FileInfo) *item.Item {
	rel, _ := filepath.Rel(root, path)
	rel = filepath.ToSlash(rel)
	return &item.Item{
		ID:           fmt.Sprintf("%d:%s", rootIndex, rel),
		Path:         path,
		Root:         root,
		RelativePath: rel,
		Name:         filepath.Base(path),
		Extension:    category.ExtensionOf(path),
		SizeBytes:    info.Size(),
		ModifiedAt:   info.ModTime(),
		Verdict:      item.VerdictPending,
	}
}

func describeMode(mode fs.FileMode) string {
	switch {
	case mode&fs.ModeSymlink != 0:
		return "symlink"
	case mode&fs.ModeNamedPipe != 0:
		return "named pipe"
	case mode&fs.ModeSocket != 0:
		return "socket"
	case mode&fs.ModeDevice != 0:
		return "device"
	default:
		return "special file"
	}
}
