/*
locks.go - Per-profile write serialization

PURPOSE:
  Every mutating operation on a given profile must be serialized with
  respect to other mutations on the same profile so lock-state and
  payable/paid checks are read-then-write atomic. Operations on different
  profiles proceed in parallel.

BOUNDED ACQUIRE:
  A writer that cannot take its profile lock within the configured
  timeout fails with ErrBusy instead of deadlocking. Busy is the only
  retryable error kind.

READS:
  Status and summary reads never take profile locks; they see committed
  state only.
*/
package fees

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// DefaultLockTimeout bounds how long a writer waits for a profile lock.
const DefaultLockTimeout = 2 * time.Second

// ProfileLocks hands out a weight-1 semaphore per profile id.
type ProfileLocks struct {
	mu      sync.Mutex
	sems    map[ProfileID]*semaphore.Weighted
	timeout time.Duration
}

// NewProfileLocks creates a lock manager with the given acquire timeout.
// A non-positive timeout falls back to DefaultLockTimeout.
func NewProfileLocks(timeout time.Duration) *ProfileLocks {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &ProfileLocks{
		sems:    make(map[ProfileID]*semaphore.Weighted),
		timeout: timeout,
	}
}

// Acquire takes the lock for one profile, waiting at most the configured
// timeout (or less if ctx expires first). On success it returns a release
// function; on contention it returns ErrBusy.
func (l *ProfileLocks) Acquire(ctx context.Context, id ProfileID) (func(), error) {
	l.mu.Lock()
	sem, ok := l.sems[id]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.sems[id] = sem
	}
	l.mu.Unlock()

	acquireCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	if err := sem.Acquire(acquireCtx, 1); err != nil {
		return nil, ErrBusy
	}
	return func() { sem.Release(1) }, nil
}
