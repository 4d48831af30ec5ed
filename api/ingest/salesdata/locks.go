package salesdata

import "sync"

// KeyedLocks serializes work per (team, date) so a duplicate check and the
// write that follows it happen atomically with respect to concurrent commits
// of the same day.
type KeyedLocks struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	refs int
}

func NewKeyedLocks() *KeyedLocks {
	return &KeyedLocks{locks: make(map[string]*entry)}
}

// Lock acquires the lock for the key and returns its unlock func.
func (k *KeyedLocks) Lock(keyStr string) func() {
	k.mu.Lock()
	e, ok := k.locks[keyStr]
	if !ok {
		e = &entry{}
		k.locks[keyStr] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.locks, keyStr)
		}
		k.mu.Unlock()
	}
}
