package attendance

import "sync"

// dayLocks serializes engine writes per employee+day. The storage layer's
// conditional insert is the authoritative duplicate guard; these locks
// keep the read-fold-validate-append sequence coherent within a process
// so concurrent retries fail with a clean business error instead of a
// constraint violation.
type dayLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newDayLocks() *dayLocks {
	return &dayLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire locks the mutex for a key and returns its unlock function.
func (d *dayLocks) acquire(key string) func() {
	d.mu.Lock()
	l, ok := d.locks[key]
	if !ok {
		l = &sync.Mutex{}
		d.locks[key] = l
	}
	d.mu.Unlock()

	l.Lock()
	return l.Unlock
}
