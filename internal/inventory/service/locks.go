package service

import "sync"

// itemLocks serializes mutations per item. Consume, adjust and allocate all
// read the cached aggregate before writing; without per-item serialization
// two concurrent calls could both pass the pre-check against a stale value
// and together overdraw stock.
type itemLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newItemLocks() *itemLocks {
	return &itemLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the mutex for the given item, creating it on first use.
// Entries are never evicted; the map grows with the number of distinct
// items mutated, which is bounded by the catalog size.
func (l *itemLocks) Lock(itemID string) *sync.Mutex {
	l.mu.Lock()
	m, ok := l.locks[itemID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[itemID] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m
}
