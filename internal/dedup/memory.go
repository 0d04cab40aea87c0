package dedup

import (
	"context"
	"sync"
	"time"
)

const sweepInterval = time.Minute

// MemoryStore keeps seen event IDs in a mutex-guarded map. With a
// non-zero TTL a background sweep evicts entries past the horizon;
// eviction can re-admit an old event ID but never produces a false
// duplicate within the horizon.
type MemoryStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration

	stop chan struct{}
	wg   sync.WaitGroup
	now  func() time.Time
}

// NewMemoryStore builds an in-process dedup store. ttl of zero
// disables eviction.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	s := &MemoryStore{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		stop: make(chan struct{}),
		now:  time.Now,
	}
	if ttl > 0 {
		s.wg.Add(1)
		go s.sweepLoop()
	}
	return s
}

// CheckAndRecord marks eventID as seen and reports whether it was
// fresh. The check and the record happen under one lock acquisition.
func (s *MemoryStore) CheckAndRecord(_ context.Context, eventID string) (bool, error) {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if at, ok := s.seen[eventID]; ok {
		if s.ttl == 0 || now.Sub(at) < s.ttl {
			return false, nil
		}
		// Past the horizon: treat as fresh and restart the clock.
	}
	s.seen[eventID] = now
	return true, nil
}

// Len reports the number of tracked IDs.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seen)
}

// Close stops the background sweep.
func (s *MemoryStore) Close() error {
	close(s.stop)
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) sweepLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.sweep()
		case <-s.stop:
			return
		}
	}
}

func (s *MemoryStore) sweep() {
	cutoff := s.now().Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, at := range s.seen {
		if at.Before(cutoff) {
			delete(s.seen, id)
		}
	}
}
