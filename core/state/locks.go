package state

import (
	"sync"

	"github.com/m3rciful/formbot/core/form"
)

type userLock struct {
	mu   sync.Mutex
	refs int
}

// userLocks hands out one mutex per user and forgets it once nobody holds or waits for it.
type userLocks struct {
	mu    sync.Mutex
	locks map[form.UserID]*userLock
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[form.UserID]*userLock)}
}

func (l *userLocks) lock(user form.UserID) func() {
	l.mu.Lock()
	ul, ok := l.locks[user]
	if !ok {
		ul = &userLock{}
		l.locks[user] = ul
	}
	ul.refs++
	l.mu.Unlock()

	ul.mu.Lock()

	var once sync.Once
	return func() {
		once.Do(func() {
			ul.mu.Unlock()
			l.mu.Lock()
			ul.refs--
			if ul.refs == 0 {
				delete(l.locks, user)
			}
			l.mu.Unlock()
		})
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
