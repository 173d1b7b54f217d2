// Package lock provides short-lived mutual exclusion keyed by string, used to
// keep a refund from being issued twice for the same appointment.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrLocked is returned when the key is already held.
var ErrLocked = errors.New("lock: already held")

// ReleaseFunc releases an acquired lock.
type ReleaseFunc func(ctx context.Context) error

// Locker acquires exclusive, expiring locks.
type Locker interface {
	// Acquire takes the lock for key or fails with ErrLocked. The lock
	// expires after the locker's TTL if it is never released.
	Acquire(ctx context.Context, key string) (ReleaseFunc, error)
}

// localLocker implements Locker inside a single process.
type localLocker struct {
	mu    sync.Mutex
	held  map[string]localEntry
	ttl   time.Duration
	now   func() time.Time
	token uint64
}

type localEntry struct {
	token   uint64
	expires time.Time
}

// NewLocalLocker creates an in-process locker.
func NewLocalLocker(ttl time.Duration) Locker {
	return &localLocker{
		held: make(map[string]localEntry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (l *localLocker) Acquire(_ context.Context, key string) (ReleaseFunc, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return nil, ErrLocked
	}

	l.token++
	token := l.token
	l.held[key] = localEntry{token: token, expires: now.Add(l.ttl)}

	return func(context.Context) error {
		l.mu.Lock()
		defer l.mu.Unlock()
		if e, ok := l.held[key]; ok && e.token == token {
			delete(l.held, key)
		}
		return nil
	}, nil
}
