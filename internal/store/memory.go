package store

import (
	"context"
	"sync"
	"time"

	"github.com/vouchersys/vouchergate/internal/model"
	appErr "github.com/vouchersys/vouchergate/internal/pkg/errors"
)

type memoryStore struct {
	mu    sync.Mutex
	items map[Key]model.Challenge
	now   func() time.Time
}

// NewMemory returns an in-process Store. It does not survive restarts and
// cannot be shared across instances; multi-process deployments should use
// the SQL-backed store instead.
func NewMemory() Store {
	return NewMemoryWithClock(time.Now)
}

// NewMemoryWithClock is NewMemory with an injectable clock for tests.
func NewMemoryWithClock(now func() time.Time) Store {
	return &memoryStore{
		items: make(map[Key]model.Challenge),
		now:   now,
	}
}

func (s *memoryStore) Put(ctx context.Context, key Key, ch model.Challenge) error {
	_ = ctx
	s.mu.Lock()
	s.items[key] = ch
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) Get(ctx context.Context, key Key) (model.Challenge, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	ch, ok := s.items[key]
	if !ok {
		return model.Challenge{}, appErr.ErrNotFound
	}
	// valid through the exact expiry second, rejected strictly after
	if ch.ExpiresAt < s.now().Unix() {
		delete(s.items, key)
		return model.Challenge{}, appErr.ErrExpired
	}
	return ch, nil
}

func (s *memoryStore) Delete(ctx context.Context, key Key) error {
	_ = ctx
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

func (s *memoryStore) DeleteExpired(ctx context.Context, now time.Time) (int, error) {
	_ = ctx
	cutoff := now.Unix()
	removed := 0
	s.mu.Lock()
	for key, ch := range s.items {
		if ch.ExpiresAt < cutoff {
			delete(s.items, key)
			removed++
		}
	}
	s.mu.Unlock()
	return removed, nil
}
