package vecfs

import "sync"

// tenantLocks hands out one RWMutex per tenant. Every load that may be
// followed by a commit holds the write side until the commit returns, so
// ancestor hashes are always computed from the latest committed records.
type tenantLocks struct {
	mu sync.Mutex
	m  map[string]*sync.RWMutex
}

func (l *tenantLocks) get(tenant string) *sync.RWMutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.m == nil {
		l.m = make(map[string]*sync.RWMutex)
	}
	rw, ok := l.m[tenant]
	if !ok {
		rw = new(sync.RWMutex)
		l.m[tenant] = rw
	}
	return rw
}

// write locks tenant for a read-modify-commit and returns the unlock func.
func (l *tenantLocks) write(tenant string) func() {
	rw := l.get(tenant)
	rw.Lock()
	return rw.Unlock
}

// read locks tenant for an operation that never commits.
func (l *tenantLocks) read(tenant string) func() {
	rw := l.get(tenant)
	rw.RLock()
	return rw.RUnlock
}
