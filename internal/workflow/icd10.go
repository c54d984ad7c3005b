package workflow

import (
	"context"
	"strings"
	"sync"
	"time"
)

const (
	searchDebounce   = 300 * time.Millisecond
	searchMinLength  = 2
	searchMatchLimit = 10
)

// CodeSearch debounces ICD-10 lookups typed into the doctor stage. Queries
// shorter than two characters never reach the backend and simply clear the
// results. Results from a superseded query are dropped.
type CodeSearch struct {
	backend Backend
	deliver func(matches []ICD10Match, err error)
	delay   time.Duration
	limit   int

	mu    sync.Mutex
	timer *time.Timer
	seq   uint64
}

// NewCodeSearch builds a searcher that delivers results through the given
// callback. The callback runs on the debounce timer's goroutine.
func NewCodeSearch(backend Backend, deliver func([]ICD10Match, error)) *CodeSearch {
	return &CodeSearch{
		backend: backend,
		deliver: deliver,
		delay:   searchDebounce,
		limit:   searchMatchLimit,
	}
}

// Query schedules a search for q, replacing any search still pending.
func (s *CodeSearch) Query(ctx context.Context, q string) {
	q = strings.TrimSpace(q)

	s.mu.Lock()
	s.seq++
	seq := s.seq
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if len(q) < searchMinLength {
		s.mu.Unlock()
		s.deliver(nil, nil)
		return
	}
	s.timer = time.AfterFunc(s.delay, func() {
		matches, err := s.backend.SearchICD10(ctx, q, s.limit)

		s.mu.Lock()
		stale := seq != s.seq
		s.mu.Unlock()
		if stale {
			return
		}
		s.deliver(matches, err)
	})
	s.mu.Unlock()
}

// Stop cancels any pending search and invalidates in-flight results.
func (s *CodeSearch) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
