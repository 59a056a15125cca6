package lock

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

type memoryLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch      chan struct{}
	waiters int
}

// NewMemory returns a process local Locker.
//
//nolint:ireturn // Returning interface is intentional for dependency injection
func NewMemory() Locker {
	return &memoryLocker{slots: make(map[string]*slot)}
}

func (l *memoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.waiters++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, errors.Wrapf(ErrLockFailed, "%s: %v", key, ctx.Err())
	}

	var once sync.Once

	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}, nil
}

// release drops the slot once nobody holds or waits for it.
func (l *memoryLocker) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.waiters--
	if s.waiters == 0 {
		delete(l.slots, key)
	}
}

func (l *memoryLocker) Close() error {
	return nil
}
