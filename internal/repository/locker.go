package repository

import (
	"context"
	"errors"
	"time"
)

// ErrLockTimeout is returned when a lock cannot be acquired within the
// locker's wait bound. Callers should treat it as transiently retriable.
var ErrLockTimeout = errors.New("lock acquisition timed out")

// Lock is a held advisory lock. Release is safe to call once; the lock also
// auto-expires after its hold duration so a crashed holder cannot wedge the
// key forever.
type Lock interface {
	Release(ctx context.Context) error
}

// Locker hands out advisory locks keyed by string. Acquire blocks up to the
// locker's configured wait bound and then fails with ErrLockTimeout.
type Locker interface {
	Acquire(ctx context.Context, key string, hold time.Duration) (Lock, error)
}

const (
	// DefaultWaitBound is how long Acquire blocks on a contended lock
	// before giving up.
	DefaultWaitBound = 3 * time.Second

	// DefaultHoldTimeout bounds how long a held lock survives without being
	// released. The critical section is expected to finish well within it;
	// expiry firing in normal operation indicates a bug, not control flow.
	DefaultHoldTimeout = 10 * time.Second

	pollInterval = 50 * time.Millisecond
)
