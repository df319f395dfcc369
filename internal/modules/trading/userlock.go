package trading

import "sync"

// userLocks serializes ledger mutations per user: at most one in-flight
// order execution per user ID, while orders for different users run in
// parallel. Locks are created on first use and never reclaimed; the map
// grows with the number of distinct users seen by this process, which is
// bounded and small compared to the ledger itself.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the per-user critical section
func (l *userLocks) Lock(userID string) {
	l.get(userID).Lock()
}

// Unlock releases the per-user critical section
func (l *userLocks) Unlock(userID string) {
	l.get(userID).Unlock()
}

func (l *userLocks) get(userID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	return m
}
