package gate

import "sync"

// AcceptedSet remembers accepted generated samples by their
// (prompt, response, producer) key to reject verbatim repeats across batches.
type AcceptedSet struct {
	mu   sync.Mutex
	keys map[string]string
}

func NewAcceptedSet() *AcceptedSet {
	return &AcceptedSet{keys: make(map[string]string)}
}

// Add stores key for id. It returns false and the id already holding the key
// when key is present.
func (s *AcceptedSet) Add(key, id string) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.keys[key]; ok {
		return false, existing
	}
	s.keys[key] = id
	return true, id
}

// Contains reports whether key was accepted.
func (s *AcceptedSet) Contains(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.keys[key]
	return ok
}

func (s *AcceptedSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}
