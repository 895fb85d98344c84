package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryStore ключи идемпотентности в памяти процесса (когда Redis выключен)
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memoryEntry
	ttl   time.Duration
	now   func() time.Time
}

type memoryEntry struct {
	state     state
	expiresAt time.Time
}

// NewMemoryStore создает хранилище. ttl <= 0 заменяется на DefaultTTL
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		items: make(map[string]memoryEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

func (s *MemoryStore) Reserve(_ context.Context, key string) (*Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.items[key]; ok && now.Before(entry.expiresAt) {
		if entry.state.Status == statusSuccess {
			return &Result{ReservationID: entry.state.ReservationID}, nil
		}
		return nil, ErrRequestInProgress
	}

	s.items[key] = memoryEntry{
		state:     state{Status: statusProcessing},
		expiresAt: now.Add(s.ttl),
	}
	return nil, nil
}

func (s *MemoryStore) MarkSuccess(_ context.Context, key string, reservationID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = memoryEntry{
		state:     state{Status: statusSuccess, ReservationID: reservationID},
		expiresAt: s.now().Add(s.ttl),
	}
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}
