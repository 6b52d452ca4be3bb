package onboarding

import "sync"

// userLocks hands out one mutex per user id. Acquisition never blocks, and
// an entry is dropped once nobody holds or is trying to take it.
type userLocks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func (l *userLocks) tryLock(userID string) (unlock func(), ok bool) {
	l.mu.Lock()
	if l.m == nil {
		l.m = make(map[string]*lockEntry)
	}
	e := l.m[userID]
	if e == nil {
		e = &lockEntry{}
		l.m[userID] = e
	}
	e.refs++
	l.mu.Unlock()

	if !e.mu.TryLock() {
		l.release(userID, e)
		return nil, false
	}
	return func() {
		e.mu.Unlock()
		l.release(userID, e)
	}, true
}

func (l *userLocks) release(userID string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.m, userID)
	}
}

func (l *userLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.m)
}
