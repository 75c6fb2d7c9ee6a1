package identity

import (
	"context"
	"io/fs"
	"path/filepath"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/lexandro/contentsieve/item"
	"github.com/lexandro/contentsieve/metrics"
)

// SeedPrefix marks hash index entries that came from pre-existing output files.
const SeedPrefix = "seed:"

// Options tunes the engine.
type Options struct {
	// Workers bounds parallel hashing; <= 0 uses GOMAXPROCS.
	Workers int
	// PrefixBytes > 0 hashes only the first PrefixBytes bytes of each file.
	PrefixBytes int64
}

// Engine hashes items and resolves exact duplicates against its hash index.
type Engine struct {
	options Options
	index   *HashIndex
	cache   *HashCache
	logger  *zap.Logger
}

// NewEngine creates an engine. cache may be nil.
func NewEngine(options Options, cache *HashCache, logger *zap.Logger) *Engine {
	if options.Workers <= 0 {
		options.Workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		options: options,
		index:   NewHashIndex(),
		cache:   cache,
		logger:  logger,
	}
}

// Index returns the engine's hash index.
func (e *Engine) Index() *HashIndex {
	return e.index
}

// Reset clears the hash index for a new run. The hash cache is kept.
func (e *Engine) Reset() {
	e.index.Reset()
}

// HashItems computes ContentHash for every item using a bounded worker pool.
// Failures set HashErr and are recorded on run. On cancellation no new files
// are opened; the returned slice holds, in input order, only the items whose
// hashing was attempted.
func (e *Engine) HashItems(ctx context.Context, items []*item.Item, run *metrics.Run, progress metrics.ProgressFunc) ([]*item.Item, error) {
	attempted := make([]bool, len(items))
	jobs := make(chan int, 100)

	var mu sync.Mutex
	done := 0

	var wg sync.WaitGroup
	for i := 0; i < e.options.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				it := items[idx]
				e.hashItem(it, run)

				mu.Lock()
				attempted[idx] = true
				done++
				progress.Emit(metrics.Event{Phase: metrics.PhaseHash, Done: done, Total: len(items), Ref: it.Path})
				mu.Unlock()
			}
		}()
	}

	var ctxErr error
feed:
	for idx := range items {
		if ctxErr = ctx.Err(); ctxErr != nil {
			break
		}
		select {
		case <-ctx.Done():
			ctxErr = ctx.Err()
			break feed
		case jobs <- idx:
		}
	}
	close(jobs)
	wg.Wait()

	if ctxErr == nil {
		return items, nil
	}
	hashed := make([]*item.Item, 0, done)
	for idx, it := range items {
		if attempted[idx] {
			hashed = append(hashed, it)
		}
	}
	return hashed, ctxErr
}

func (e *Engine) hashItem(it *item.Item, run *metrics.Run) {
	if hash, ok := e.cache.Get(it.Path, it.SizeBytes, it.ModifiedAt, e.options.PrefixBytes); ok {
		it.ContentHash = hash
		return
	}
	hash, err := HashFile(it.Path, e.options.PrefixBytes)
	if err != nil {
		it.ContentHash = ""
		it.HashErr = err
		e.logger.Debug("hash failed", zap.String("path", it.Path), zap.Error(err))
		run.RecordError("hash", it.Path, err)
		return
	}
	it.ContentHash = hash
	e.cache.Add(it.Path, it.SizeBytes, it.ModifiedAt, e.options.PrefixBytes, hash)
}

// Resolve inserts hashed items into the index in slice order, which makes the
// first item of each hash the canonical one. Items without a hash are never
// duplicates.
func (e *Engine) Resolve(items []*item.Item, run *metrics.Run) {
	for _, it := range items {
		if !it.HasHash() {
			it.IsDuplicate = false
			it.CanonicalID = ""
			continue
		}
		duplicate, canonical := e.index.Observe(it.ContentHash, it.ID)
		it.IsDuplicate = duplicate
		it.CanonicalID = canonical
		if duplicate {
			run.DuplicateFound()
		}
	}
}

// SeedFromOutput hashes files already present under dir into the index as
// canonical entries so re-runs never copy the same content twice.
// Seeded files are not items and do not touch run counters. A missing dir
// seeds nothing. Directories in skipDirs are not descended into.
func (e *Engine) SeedFromOutput(ctx context.Context, dir string, skipDirs ...string) (int, error) {
	skip := make(map[string]bool, len(skipDirs))
	for _, d := range skipDirs {
		skip[filepath.Clean(d)] = true
	}

	seeded := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err == nil && d.IsDir() && skip[filepath.Clean(path)] {
			return filepath.SkipDir
		}
		if err != nil || !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		hash, ok := e.cache.Get(path, info.Size(), info.ModTime(), e.options.PrefixBytes)
		if !ok {
			hash, err = HashFile(path, e.options.PrefixBytes)
			if err != nil {
				e.logger.Debug("seed hash failed", zap.String("path", path), zap.Error(err))
				return nil
			}
			e.cache.Add(path, info.Size(), info.ModTime(), e.options.PrefixBytes, hash)
		}
		e.index.Observe(hash, SeedPrefix+path)
		seeded++
		return nil
	})
	if err != nil {
		return seeded, err
	}
	e.logger.Debug("seeded hash index from output", zap.String("dir", dir), zap.Int("files", seeded))
	return seeded, nil
}
