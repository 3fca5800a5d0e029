package refresh

import (
	"sync"

	"github.com/google/uuid"
)

type driverLock struct {
	mu   sync.Mutex
	refs int
}

// driverLocks serializes refreshes per driver. A second refresh for the same
// driver is rejected instead of queued; different drivers never contend.
// Entries are reference counted and removed once nobody holds or probes them,
// so the registry stays proportional to in-flight refreshes rather than to
// every driver ever seen.
type driverLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*driverLock
}

func newDriverLocks() *driverLocks {
	return &driverLocks{locks: map[uuid.UUID]*driverLock{}}
}

func (d *driverLocks) tryAcquire(driverID uuid.UUID) bool {
	d.mu.Lock()
	entry, ok := d.locks[driverID]
	if !ok {
		entry = &driverLock{}
		d.locks[driverID] = entry
	}
	entry.refs++
	d.mu.Unlock()

	if entry.mu.TryLock() {
		return true
	}

	d.mu.Lock()
	d.drop(driverID, entry)
	d.mu.Unlock()
	return false
}

func (d *driverLocks) release(driverID uuid.UUID) {
	d.mu.Lock()
	entry, ok := d.locks[driverID]
	if ok {
		d.drop(driverID, entry)
	}
	d.mu.Unlock()

	if ok {
		entry.mu.Unlock()
	}
}

// drop is called with d.mu held.
func (d *driverLocks) drop(driverID uuid.UUID, entry *driverLock) {
	entry.refs--
	if entry.refs <= 0 {
		delete(d.locks, driverID)
	}
}

func (d *driverLocks) size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.locks)
}
