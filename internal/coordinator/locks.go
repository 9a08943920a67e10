package coordinator

import (
	"context"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"github.com/dreamware/opcache/errs"
	"github.com/dreamware/opcache/internal/cachelog"
)

var locksLog = cachelog.New("coordinator.locks")

// locks bundles L_thread, an in-process mutex, and L_file, an advisory
// inter-process file lock. L_file lives in a sibling file next to the
// sqlite database rather than the database file itself, so holding it
// never blocks sqlite's own locking.
type locks struct {
	thread      sync.Mutex
	file        *flock.Flock
	lockTimeout time.Duration
}

func newLocks(lockPath string, lockTimeout time.Duration) *locks {
	return &locks{
		file:        flock.New(lockPath),
		lockTimeout: lockTimeout,
	}
}

// acquireBoth takes L_thread then L_file, in that order, for a read-only
// probe. Returns errs.ErrLockTimeout if L_file isn't acquired within
// lockTimeout; L_thread is released again in that case.
func (l *locks) acquireBoth(ctx context.Context) error {
	l.thread.Lock()
	if err := l.acquireFile(ctx); err != nil {
		l.thread.Unlock()
		return err
	}
	return nil
}

func (l *locks) releaseBoth() {
	_ = l.file.Unlock()
	l.thread.Unlock()
}

func (l *locks) acquireFile(ctx context.Context) error {
	requestID := uuid.NewString()
	fctx, cancel := context.WithTimeout(ctx, l.lockTimeout)
	defer cancel()
	ok, err := l.file.TryLockContext(fctx, time.Millisecond)
	if err != nil && fctx.Err() != nil && ctx.Err() == nil {
		// The lock_timeout deadline ran out (not the caller's own ctx).
		ok, err = false, nil
	}
	if err != nil {
		locksLog.Warnw("L_file acquisition errored", "request_id", requestID, "error", err)
		return errs.Wrap(err, "coordinator: acquire L_file")
	}
	if !ok {
		locksLog.Warnw("L_file acquisition timed out", "request_id", requestID, "timeout", l.lockTimeout)
		return errs.ErrLockTimeout
	}
	locksLog.Debugw("L_file acquired", "request_id", requestID)
	return nil
}

func (l *locks) releaseFile() {
	_ = l.file.Unlock()
}

// contended performs a non-blocking convoy check: a caller about to fill
// first peeks whether either lock is currently held by someone else, and
// if so backs off to the deferred-retry path instead of queuing behind
// them.
func (l *locks) contended() bool {
	if !l.thread.TryLock() {
		return true
	}
	defer l.thread.Unlock()

	ok, err := l.file.TryLock()
	if err != nil || !ok {
		return true
	}
	defer l.file.Unlock()
	return false
}
