package service

import "sync"

// keyedMutex serializes work per key. Entries are never evicted; the key
// space here is bounded (lesson numbers, active user ids).
type keyedMutex struct {
	mu    sync.Mutex
	locks map[interface{}]*sync.Mutex
}

// lock acquires the mutex for key and returns its unlock function.
func (k *keyedMutex) lock(key interface{}) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[interface{}]*sync.Mutex)
	}
	entry, ok := k.locks[key]
	if !ok {
		entry = &sync.Mutex{}
		k.locks[key] = entry
	}
	k.mu.Unlock()

	entry.Lock()
	return entry.Unlock
}
