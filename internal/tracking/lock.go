// README: Per-key mutex so that all mutations of one order (or driver) are serialized.
package tracking

import (
	"sync"

	"tracker/internal/types"
)

type keyedMutex struct {
	mu    sync.Mutex
	locks map[types.ID]*refLock
}

type refLock struct {
	sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[types.ID]*refLock)}
}

// Lock blocks until id is free and returns the matching unlock. Entries are
// dropped once nobody holds or waits for them.
func (k *keyedMutex) Lock(id types.ID) func() {
	k.mu.Lock()
	l, ok := k.locks[id]
	if !ok {
		l = &refLock{}
		k.locks[id] = l
	}
	l.refs++
	k.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}

func (k *keyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
