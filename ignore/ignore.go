package ignore

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	gitignore "github.com/denormal/go-gitignore"
)

// IgnoreFileNames are the per-root ignore files honored by the matcher.
var IgnoreFileNames = []string{".gitignore", ".sieveignore"}

// Matcher decides whether a path under one scan root is skipped.
// It combines default name patterns, per-root ignore files, user skip patterns,
// excluded directories and a size limit.
// Thread-safe: Reload() takes the write lock, the Should* methods take the read lock.
type Matcher struct {
	mu               sync.RWMutex
	rootDir          string
	ignoreFiles      []gitignore.GitIgnore
	substrings       []string
	globs            []string
	defaultPatterns  []string
	excludeDirs      []string
	maxFileSizeBytes int64
}

// MatcherOptions configures the ignore matcher.
type MatcherOptions struct {
	RootDir string
	// SkipPatterns containing glob metacharacters are matched with doublestar
	// against the root-relative path and the base name; others are substrings
	// of the root-relative path.
	SkipPatterns []string
	// ExcludeDirs are absolute directories that are never descended into
	// (typically the output and archive directories).
	ExcludeDirs []string
	// MaxFileSizeBytes <= 0 disables the size limit.
	MaxFileSizeBytes int64
	// NoDefaults drops DefaultSkipPatterns.
	NoDefaults bool
}

// NewMatcher builds a matcher for one root. Invalid glob patterns are rejected.
func NewMatcher(options MatcherOptions) (*Matcher, error) {
	matcher := &Matcher{
		rootDir:          filepath.Clean(options.RootDir),
		maxFileSizeBytes: options.MaxFileSizeBytes,
	}
	if !options.NoDefaults {
		matcher.defaultPatterns = DefaultSkipPatterns
	}

	for _, pattern := range options.SkipPatterns {
		pattern = filepath.ToSlash(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if !isGlob(pattern) {
			matcher.substrings = append(matcher.substrings, pattern)
			continue
		}
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid skip pattern %q", pattern)
		}
		matcher.globs = append(matcher.globs, pattern)
	}

	for _, dir := range options.ExcludeDirs {
		if dir == "" {
			continue
		}
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, fmt.Errorf("resolving excluded dir %s: %w", dir, err)
		}
		if resolved, err := filepath.EvalSymlinks(abs); err == nil {
			abs = resolved
		}
		matcher.excludeDirs = append(matcher.excludeDirs, abs)
	}

	matcher.ignoreFiles = loadIgnoreFiles(matcher.rootDir)
	return matcher, nil
}

// RootDir returns the root this matcher was built for.
func (m *Matcher) RootDir() string {
	return m.rootDir
}

// ShouldIgnore reports whether the path (absolute, under the root) is skipped.
func (m *Matcher) ShouldIgnore(absolutePath string, isDir bool) bool {
	if m.isExcludedDir(absolutePath) {
		return true
	}

	relativePath, err := filepath.Rel(m.rootDir, absolutePath)
	if err != nil {
		relativePath = absolutePath
	}
	relativePath = filepath.ToSlash(relativePath)
	if relativePath == "." {
		return false
	}

	if m.matchesDefaultPatterns(relativePath) {
		return true
	}
	if m.matchesSkipPatterns(relativePath) {
		return true
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, gi := range m.ignoreFiles {
		match := gi.Relative(relativePath, isDir)
		if match != nil && match.Ignore() {
			return true
		}
	}
	return false
}

// ShouldIgnoreDir reports whether a directory is skipped entirely during traversal.
func (m *Matcher) ShouldIgnoreDir(absolutePath string) bool {
	if len(m.defaultPatterns) > 0 {
		switch filepath.Base(absolutePath) {
		case ".git", ".svn", ".hg", "node_modules", "__pycache__", ".venv", "venv":
			return true
		}
	}
	return m.ShouldIgnore(absolutePath, true)
}

// IsFileTooLarge reports whether a file exceeds the size limit.
func (m *Matcher) IsFileTooLarge(fileSize int64) bool {
	return m.maxFileSizeBytes > 0 && fileSize > m.maxFileSizeBytes
}

// IsIgnoreFile reports whether path names one of the honored ignore files.
func IsIgnoreFile(path string) bool {
	base := filepath.Base(path)
	for _, name := range IgnoreFileNames {
		if base == name {
			return true
		}
	}
	return false
}

// Reload re-reads the ignore files from disk.
func (m *Matcher) Reload() {
	files := loadIgnoreFiles(m.rootDir)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ignoreFiles = files
}

func (m *Matcher) isExcludedDir(absolutePath string) bool {
	for _, dir := range m.excludeDirs {
		if absolutePath == dir || strings.HasPrefix(absolutePath, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// matchesDefaultPatterns checks path components against plain names and the
// base name against glob patterns, case-insensitively.
func (m *Matcher) matchesDefaultPatterns(relativePath string) bool {
	if len(m.defaultPatterns) == 0 {
		return false
	}
	lowerPath := strings.ToLower(relativePath)
	parts := strings.Split(lowerPath, "/")
	base := parts[len(parts)-1]

	for _, pattern := range m.defaultPatterns {
		pattern = strings.ToLower(pattern)
		if !isGlob(pattern) {
			for _, part := range parts {
				if part == pattern {
					return true
				}
			}
			continue
		}
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

func (m *Matcher) matchesSkipPatterns(relativePath string) bool {
	for _, substring := range m.substrings {
		if strings.Contains(relativePath, substring) {
			return true
		}
	}
	base := filepath.Base(relativePath)
	for _, pattern := range m.globs {
		if matched, _ := doublestar.Match(pattern, relativePath); matched {
			return true
		}
		if matched, _ := doublestar.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

func isGlob(pattern string) bool {
	return strings.ContainsAny(pattern, "*?[{")
}

func loadIgnoreFiles(rootDir string) []gitignore.GitIgnore {
	var files []gitignore.GitIgnore
	for _, name := range IgnoreFileNames {
		if gi := loadIgnoreFile(filepath.Join(rootDir, name), rootDir); gi != nil {
			files = append(files, gi)
		}
	}
	return files
}

// loadIgnoreFile reads through an io.Reader so the handle is closed promptly.
func loadIgnoreFile(filePath string, baseDir string) gitignore.GitIgnore {
	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	return gitignore.New(f, baseDir, nil)
}
