package gitlog

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gofrs/flock"
)

const lockRetryDelay = 100 * time.Millisecond

// PathLocker serializes access to individual repository checkouts. Within a
// process a per-path channel semaphore is used; when a lock directory is
// configured an flock file per path extends the exclusion across processes.
type PathLocker struct {
	dir string

	mu    sync.Mutex
	slots map[string]chan struct{}
}

// NewPathLocker returns a locker. An empty dir disables cross-process locking.
func NewPathLocker(dir string) *PathLocker {
	return &PathLocker{dir: dir, slots: make(map[string]chan struct{})}
}

// Lock blocks until path is exclusively held or ctx ends. The returned
// function releases the lock and is safe to call once.
func (l *PathLocker) Lock(ctx context.Context, path string) (func(), error) {
	key := filepath.Clean(path)
	slot := l.slot(key)
	select {
	case slot <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if l.dir == "" {
		return func() { <-slot }, nil
	}

	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		<-slot
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	sum := sha1.Sum([]byte(key))
	fileLock := flock.New(filepath.Join(l.dir, hex.EncodeToString(sum[:])+".lock"))
	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil || !locked {
		<-slot
		if err == nil {
			err = fmt.Errorf("lock %s: not acquired", key)
		}
		return nil, fmt.Errorf("lock repository %s: %w", key, err)
	}
	return func() {
		_ = fileLock.Unlock()
		<-slot
	}, nil
}

func (l *PathLocker) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.slots[key]
	if !ok {
		slot = make(chan struct{}, 1)
		l.slots[key] = slot
	}
	return slot
}
