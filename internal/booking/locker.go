package booking

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Locker serializes writers per key within one process.
// Entries are reference counted and dropped once nobody holds or waits on them.
type Locker struct {
	mu    sync.Mutex
	slots map[string]*lockSlot
}

type lockSlot struct {
	ch   chan struct{}
	refs int
}

func NewLocker() *Locker {
	return &Locker{slots: make(map[string]*lockSlot)}
}

// Lock waits at most wait for key. The returned unlock func is idempotent.
// It fails with ErrLockTimeout when the wait expires.
func (l *Locker) Lock(ctx context.Context, key string, wait time.Duration) (func(), error) {
	slot := l.acquire(key)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case slot.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-slot.ch
				l.release(key, slot)
			})
		}, nil
	case <-timer.C:
		l.release(key, slot)
		return nil, ErrLockTimeout
	case <-ctx.Done():
		l.release(key, slot)
		return nil, fmt.Errorf("wait for lock on %s: %w", key, ctx.Err())
	}
}

func (l *Locker) acquire(key string) *lockSlot {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot, ok := l.slots[key]
	if !ok {
		slot = &lockSlot{ch: make(chan struct{}, 1)}
		l.slots[key] = slot
	}
	slot.refs++
	return slot
}

func (l *Locker) release(key string, slot *lockSlot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	slot.refs--
	if slot.refs == 0 {
		delete(l.slots, key)
	}
}

// size is the number of live keys.
func (l *Locker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
