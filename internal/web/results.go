package web

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/inbox-triage/triage/internal/triage"
)

// ResultStore keeps recent analysis results in memory so API clients can
// fetch them again by ID. Nothing is written to disk.
type ResultStore struct {
	results map[string]*StoredResult
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time

	done      chan struct{}
	closeOnce sync.Once
}

// StoredResult is one analysis result held by the store
type StoredResult struct {
	ID        string        `json:"id"`
	Result    triage.Result `json:"result"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"-"`
}

// NewResultStore creates a new result store with automatic cleanup
func NewResultStore(ttl time.Duration) *ResultStore {
	store := &ResultStore{
		results: make(map[string]*StoredResult),
		ttl:     ttl,
		now:     time.Now,
		done:    make(chan struct{}),
	}

	go store.cleanupLoop()

	return store
}

// Save stores res under a fresh ID
func (s *ResultStore) Save(res triage.Result) *StoredResult {
	now := s.now()
	stored := &StoredResult{
		ID:        uuid.New().String(),
		Result:    res,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}

	s.mu.Lock()
	s.results[stored.ID] = stored
	s.mu.Unlock()

	return stored
}

// Get retrieves a result by ID, returns nil if not found or expired
func (s *ResultStore) Get(id string) *StoredResult {
	if id == "" {
		return nil
	}

	s.mu.RLock()
	stored, exists := s.results[id]
	s.mu.RUnlock()

	if !exists {
		return nil
	}

	if s.now().After(stored.ExpiresAt) {
		s.Delete(id)
		return nil
	}

	return stored
}

// Delete removes a result
func (s *ResultStore) Delete(id string) {
	s.mu.Lock()
	delete(s.results, id)
	s.mu.Unlock()
}

// cleanupLoop periodically removes expired results
func (s *ResultStore) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

// Close stops the cleanup goroutine. Stored results stay readable.
func (s *ResultStore) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

// cleanup removes all expired results
func (s *ResultStore) cleanup() {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, stored := range s.results {
		if now.After(stored.ExpiresAt) {
			delete(s.results, id)
		}
	}
}

// Count returns the number of stored results
func (s *ResultStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
