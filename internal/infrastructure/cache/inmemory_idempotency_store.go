package cache

import (
	"context"
	"sync"
	"time"

	"github.com/facturacion/backend/internal/domain/shared"
)

const idempotencySweepInterval = 5 * time.Minute

type keyRecord struct {
	deadline time.Time
}

// InMemoryIdempotencyStore keeps processed request keys in a process-local
// map so retried declaration POSTs are rejected without touching the
// database. Single-instance deployments only; the Redis store covers the
// rest.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	keys      map[string]keyRecord
	done      chan struct{}
	sweeper   sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates the store and starts its expiry sweeper
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		keys: make(map[string]keyRecord),
		done: make(chan struct{}),
	}

	s.sweeper.Add(1)
	go s.sweepLoop()

	return s
}

// MarkProcessed claims a key for the given TTL. The first caller wins and
// gets true; callers replaying a live key get false. An expired key can be
// claimed again.
func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, ttl time.Duration) (bool, error) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.keys[key]; ok && now.Before(rec.deadline) {
		return false, nil
	}
	s.keys[key] = keyRecord{deadline: now.Add(ttl)}
	return true, nil
}

// IsProcessed reports whether a key is currently claimed
func (s *InMemoryIdempotencyStore) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.keys[key]
	return ok && time.Now().Before(rec.deadline), nil
}

// Close stops the sweeper. Safe to call more than once.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.sweeper.Wait()
	})
	return nil
}

// Size returns the number of tracked keys, expired ones included until the
// next sweep
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

func (s *InMemoryIdempotencyStore) sweepLoop() {
	defer s.sweeper.Done()

	ticker := time.NewTicker(idempotencySweepInterval)
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

func (s *InMemoryIdempotencyStore) cleanup() {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	for key, rec := range s.keys {
		if now.After(rec.deadline) {
			delete(s.keys, key)
		}
	}
}

var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
