package identity

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of cached file hashes.
const DefaultCacheSize = 65536

type cacheKey struct {
	path        string
	size        int64
	modUnixNano int64
	prefixBytes int64
}

// HashCache remembers file hashes keyed by (path, size, mtime) so unchanged
// files are not re-read across watch-mode re-runs.
type HashCache struct {
	entries *lru.Cache[cacheKey, string]
}

// NewHashCache creates a cache holding at most size entries.
func NewHashCache(size int) (*HashCache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	entries, err := lru.New[cacheKey, string](size)
	if err != nil {
		return nil, err
	}
	return &HashCache{entries: entries}, nil
}

func (c *HashCache) Get(path string, size int64, modTime time.Time, prefixBytes int64) (string, bool) {
	if c == nil {
		return "", false
	}
	return c.entries.Get(cacheKey{path, size, modTime.UnixNano(), prefixBytes})
}

func (c *HashCache) Add(path string, size int64, modTime time.Time, prefixBytes int64, hash string) {
	if c == nil {
		return
	}
	c.entries.Add(cacheKey{path, size, modTime.UnixNano(), prefixBytes}, hash)
}

// Len returns the number of cached entries.
func (c *HashCache) Len() int {
	if c == nil {
		return 0
	}
	return c.entries.Len()
}
