package tools

import (
	"sync"
	"time"

	"github.com/lexandro/contentsieve/pipeline"
)

// RunState tracks the organize run in progress and the last finished one.
type RunState struct {
	mu         sync.Mutex
	running    bool
	last       *pipeline.Result
	finishedAt time.Time
}

// Begin claims the run slot. It returns false when a run is already active.
func (s *RunState) Begin() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

// End releases the run slot and records result when it is non-nil.
func (s *RunState) End(result *pipeline.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if result != nil {
		s.last = result
		s.finishedAt = time.Now()
	}
}

// Last returns the most recent finished run, or nil.
func (s *RunState) Last() (*pipeline.Result, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.finishedAt
}

// Running reports whether a run is active.
func (s *RunState) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
