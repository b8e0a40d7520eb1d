package service

import "sync"

// keyedMutex serialises state transitions per entity so concurrent calls
// cannot both observe the same pre-transition snapshot.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uint]*entityLock
}

type entityLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[uint]*entityLock)}
}

// Lock acquires the mutex for the given entity and returns its unlock func.
func (k *keyedMutex) Lock(id uint) func() {
	k.mu.Lock()
	lock, ok := k.locks[id]
	if !ok {
		lock = &entityLock{}
		k.locks[id] = lock
	}
	lock.refs++
	k.mu.Unlock()

	lock.mu.Lock()

	return func() {
		lock.mu.Unlock()

		k.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(k.locks, id)
		}
		k.mu.Unlock()
	}
}
