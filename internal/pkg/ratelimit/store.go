package ratelimit

import (
	"sync"
	"time"
)

// Window is one identity's counter state.
type Window struct {
	Count   int
	ResetAt time.Time
}

// Store holds rate-limit windows. CompareAndSwap with a zero-value old
// window means "insert only if absent". The same limiter logic runs
// against the in-memory store in tests and the Redis store in production.
type Store interface {
	Get(key string) (Window, bool, error)
	CompareAndSwap(key string, old, new Window) (bool, error)
	Delete(key string) error
}

// MemoryStore is the in-process Store. Expired windows are reclaimed by
// Sweep; correctness never depends on the sweeper because the limiter
// treats an expired entry as absent.
type MemoryStore struct {
	mu      sync.Mutex
	windows map[string]Window
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{windows: make(map[string]Window)}
}

func (s *MemoryStore) Get(key string) (Window, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.windows[key]
	return w, ok, nil
}

func (s *MemoryStore) CompareAndSwap(key string, old, new Window) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.windows[key]
	if !ok {
		if old != (Window{}) {
			return false, nil
		}
	} else if cur != old {
		return false, nil
	}
	s.windows[key] = new
	return true, nil
}

func (s *MemoryStore) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

// Sweep drops windows that expired before now to bound memory.
func (s *MemoryStore) Sweep(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, w := range s.windows {
		if !now.Before(w.ResetAt) {
			delete(s.windows, key)
		}
	}
}

// StartSweeper reclaims expired windows every interval until stop is
// closed.
func (s *MemoryStore) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case t := <-ticker.C:
				s.Sweep(t)
			}
		}
	}()
}
