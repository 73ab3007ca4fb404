// Package lock provides the per-(project, category) exclusive sections that
// protect compare-then-commit writes.
//
// Local serializes writers inside one process. Redis serializes writers
// across processes sharing a database.
package lock

import (
	"context"
	"sync"

	"github.com/HendryAvila/specgate/internal/specs"
)

// Locker grants exclusive sections by key. Lock blocks until the key is
// free or ctx is done, and returns a function releasing it.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// Key is the lock key of one category of one project.
func Key(projectID string, cat specs.Category) string {
	return projectID + "/" + string(cat)
}

var (
	_ Locker = (*Local)(nil)
	_ Locker = (*Redis)(nil)
)

// Local is an in-process keyed mutex. The zero value is ready to use.
type Local struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

// NewLocal creates a Local locker.
func NewLocal() *Local {
	return &Local{}
}

// Lock acquires key, honouring ctx cancellation while waiting.
func (l *Local) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	if l.slots == nil {
		l.slots = make(map[string]*slot)
	}
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	l.mu.Unlock()

	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.release(key, s)
		return nil, ctx.Err()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.release(key, s)
		})
	}, nil
}

func (l *Local) release(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}
