package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLocker implements Locker for a single process. It matches the
// RedisLocker semantics (bounded wait, expiring hold, token-checked release)
// and backs tests and deployments without Redis.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]memoryEntry
	wait  time.Duration
}

type memoryEntry struct {
	token     string
	expiresAt time.Time
}

func NewMemoryLocker(wait time.Duration) *MemoryLocker {
	if wait <= 0 {
		wait = DefaultWaitBound
	}
	return &MemoryLocker{
		locks: make(map[string]memoryEntry),
		wait:  wait,
	}
}

func (l *MemoryLocker) Acquire(ctx context.Context, key string, hold time.Duration) (Lock, error) {
	if hold <= 0 {
		hold = DefaultHoldTimeout
	}
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		if l.tryAcquire(key, token, hold) {
			return &memoryLock{locker: l, key: key, token: token}, nil
		}

		if time.Now().After(deadline) {
			return nil, ErrLockTimeout
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

func (l *MemoryLocker) tryAcquire(key, token string, hold time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if entry, ok := l.locks[key]; ok && entry.expiresAt.After(now) {
		return false
	}
	l.locks[key] = memoryEntry{token: token, expiresAt: now.Add(hold)}
	return true
}

func (l *MemoryLocker) release(key, token string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if entry, ok := l.locks[key]; ok && entry.token == token {
		delete(l.locks, key)
	}
}

type memoryLock struct {
	locker *MemoryLocker
	key    string
	token  string
}

func (l *memoryLock) Release(ctx context.Context) error {
	l.locker.release(l.key, l.token)
	return nil
}
