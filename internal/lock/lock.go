// Package lock provides short-lived named locks used to keep a single upload
// running per operator session, including across service replicas.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrHeld is returned when the key is already locked.
var ErrHeld = errors.New("lock: held")

// Locker acquires key for at most ttl. The returned release func is safe to
// call more than once.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}

// Memory is a process-local Locker.
type Memory struct {
	mu   sync.Mutex
	held map[string]time.Time
	now  func() time.Time
}

func NewMemory() *Memory {
	return &Memory{held: make(map[string]time.Time), now: time.Now}
}

func (m *Memory) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if expires, ok := m.held[key]; ok && now.Before(expires) {
		return nil, ErrHeld
	}
	expires := now.Add(ttl)
	m.held[key] = expires

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			// Only drop our own hold; an expired lock may have been re-taken.
			if m.held[key].Equal(expires) {
				delete(m.held, key)
			}
		})
	}, nil
}
