// Package lock serializes writers of a single document.
//
// Every workflow mutation holds the lock for its document id while it reads, modifies and
// saves the record. Two implementations are provided: Local, an in-process keyed mutex for a
// single server, and Redis, a lease based lock for several servers sharing one store.
//
// The lock is the first line of defence only. Stores also reject stale writes with a version
// check, so a lease that expires mid-operation can cost a retry but never a lost update.
package lock

import (
	"context"
	"errors"
)

// Locker acquires exclusive per-key locks.
//
// Lock blocks until the lock is held or ctx is done. The returned function releases the lock
// and is safe to call more than once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// ErrNotAcquired is returned when ctx ends before the lock could be acquired.
var ErrNotAcquired = errors.New("lock not acquired")
