package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
)

// Entry kinds.
const (
	KindFile   = "file"
	KindSample = "sample"
)

// Entry is one accepted item known to the catalog.
type Entry struct {
	Ref          string    // Catalog key: destination relative to the output dir, or samples/<unit>/<id>
	Kind         string    // KindFile or KindSample
	Path         string    // Absolute destination path (files only)
	Source       string    // Original path for files, producer for samples
	Category     string    // Category for files, domain for samples
	SizeBytes    int64     // Size in bytes
	QualityScore float64   // Score at acceptance
	AddedAt      time.Time // When the entry was cataloged
}

// Entries keeps accepted entries in a map for lookups and a sorted slice for
// glob iteration.
type Entries struct {
	mu         sync.RWMutex
	entries    map[string]*Entry
	sortedRefs []string
}

func NewEntries() *Entries {
	return &Entries{
		entries:    make(map[string]*Entry),
		sortedRefs: make([]string, 0),
	}
}

// Add adds or updates an entry.
func (es *Entries) Add(e *Entry) {
	es.mu.Lock()
	defer es.mu.Unlock()

	_, exists := es.entries[e.Ref]
	es.entries[e.Ref] = e

	if !exists {
		idx := sort.SearchStrings(es.sortedRefs, e.Ref)
		es.sortedRefs = append(es.sortedRefs, "")
		copy(es.sortedRefs[idx+1:], es.sortedRefs[idx:])
		es.sortedRefs[idx] = e.Ref
	}
}

// Remove deletes an entry by ref.
func (es *Entries) Remove(ref string) {
	es.mu.Lock()
	defer es.mu.Unlock()

	if _, exists := es.entries[ref]; !exists {
		return
	}
	delete(es.entries, ref)

	idx := sort.SearchStrings(es.sortedRefs, ref)
	if idx < len(es.sortedRefs) && es.sortedRefs[idx] == ref {
		es.sortedRefs = append(es.sortedRefs[:idx], es.sortedRefs[idx+1:]...)
	}
}

// Get returns the entry for ref, or nil.
func (es *Entries) Get(ref string) *Entry {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return es.entries[ref]
}

func (es *Entries) Count() int {
	es.mu.RLock()
	defer es.mu.RUnlock()
	return len(es.entries)
}

func (es *Entries) TotalSizeBytes() int64 {
	es.mu.RLock()
	defer es.mu.RUnlock()

	var total int64
	for _, e := range es.entries {
		total += e.SizeBytes
	}
	return total
}

// CategoryCounts returns category -> entry count.
func (es *Entries) CategoryCounts() map[string]int {
	es.mu.RLock()
	defer es.mu.RUnlock()

	counts := make(map[string]int)
	for _, e := range es.entries {
		counts[e.Category]++
	}
	return counts
}

// SearchByGlob returns entries whose ref matches a doublestar pattern, in ref order.
func (es *Entries) SearchByGlob(pattern string, maxResults int) ([]*Entry, error) {
	es.mu.RLock()
	defer es.mu.RUnlock()

	if maxResults <= 0 {
		maxResults = 50
	}

	pattern = strings.ReplaceAll(pattern, "\\", "/")
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid glob pattern: %s", pattern)
	}

	var results []*Entry
	for _, ref := range es.sortedRefs {
		if len(results) >= maxResults {
			break
		}
		matched, err := doublestar.Match(pattern, ref)
		if err != nil || !matched {
			continue
		}
		results = append(results, es.entries[ref])
	}
	return results, nil
}

// All returns every entry in ref order.
func (es *Entries) All() []*Entry {
	es.mu.RLock()
	defer es.mu.RUnlock()

	result := make([]*Entry, 0, len(es.sortedRefs))
	for _, ref := range es.sortedRefs {
		result = append(result, es.entries[ref])
	}
	return result
}

func (es *Entries) Clear() {
	es.mu.Lock()
	defer es.mu.Unlock()

	es.entries = make(map[string]*Entry)
	es.sortedRefs = make([]string, 0)
}
