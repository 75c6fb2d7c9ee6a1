package identity

import "sync"

// HashIndex maps a content hash to the identifiers sharing it, in the order
// they were observed. The first identifier is the canonical instance.
// Safe for concurrent use; Observe is serialized so two callers can never both
// be treated as the first occurrence of a hash.
type HashIndex struct {
	mu      sync.Mutex
	entries map[string][]string
}

func NewHashIndex() *HashIndex {
	return &HashIndex{entries: make(map[string][]string)}
}

// Observe records id under hash and reports whether it is a duplicate along
// with the canonical identifier. Observing the canonical id again is not a
// duplicate.
func (x *HashIndex) Observe(hash, id string) (duplicate bool, canonical string) {
	x.mu.Lock()
	defer x.mu.Unlock()

	ids, ok := x.entries[hash]
	if !ok {
		x.entries[hash] = []string{id}
		return false, id
	}
	if ids[0] == id {
		return false, id
	}
	for _, existing := range ids[1:] {
		if existing == id {
			return true, ids[0]
		}
	}
	x.entries[hash] = append(ids, id)
	return true, ids[0]
}

// Contains reports whether hash has been observed.
func (x *HashIndex) Contains(hash string) bool {
	x.mu.Lock()
	defer x.mu.Unlock()
	_, ok := x.entries[hash]
	return ok
}

// IDs returns a copy of the identifiers recorded for hash.
func (x *HashIndex) IDs(hash string) []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.entries[hash]...)
}

// Len returns the number of distinct hashes.
func (x *HashIndex) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.entries)
}

// Reset clears the index for a new run.
func (x *HashIndex) Reset() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.entries = make(map[string][]string)
}
