package keylock

import (
	"context"
	"sync"
)

// Locker hands out one mutex per key. Waiters on the same key are served in
// the order they called Lock. Entries are reference counted and dropped once
// nobody holds or waits on them.
type Locker struct {
	mu      sync.Mutex
	entries map[string]*entry
}

type entry struct {
	held    bool
	waiters []chan struct{}
	refs    int
}

func New() *Locker {
	return &Locker{entries: make(map[string]*entry)}
}

// Lock blocks until key is free or ctx is done. On success the returned
// function releases the key; calling it more than once is a no-op.
func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	e, ok := l.entries[key]
	if !ok {
		e = &entry{}
		l.entries[key] = e
	}
	e.refs++

	if !e.held {
		e.held = true
		l.mu.Unlock()
		return l.releaser(key, e), nil
	}

	ch := make(chan struct{})
	e.waiters = append(e.waiters, ch)
	l.mu.Unlock()

	select {
	case <-ch:
		return l.releaser(key, e), nil
	case <-ctx.Done():
		l.mu.Lock()
		defer l.mu.Unlock()
		for i, w := range e.waiters {
			if w == ch {
				e.waiters = append(e.waiters[:i], e.waiters[i+1:]...)
				e.refs--
				return nil, ctx.Err()
			}
		}
		// ownership was handed over while we were cancelling
		l.unlockLocked(key, e)
		return nil, ctx.Err()
	}
}

func (l *Locker) releaser(key string, e *entry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			l.unlockLocked(key, e)
		})
	}
}

func (l *Locker) unlockLocked(key string, e *entry) {
	e.refs--
	if len(e.waiters) > 0 {
		next := e.waiters[0]
		e.waiters = e.waiters[1:]
		close(next)
		return
	}
	e.held = false
	if e.refs == 0 {
		delete(l.entries, key)
	}
}

// Len reports how many keys are currently held or awaited.
func (l *Locker) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
