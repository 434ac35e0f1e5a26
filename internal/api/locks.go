package api

import "sync"

// sheetLocks hands out one mutex per sheet name. Row indices are positional,
// and meeting IDs are computed from a column scan, so a scan-then-append or
// an edit/delete racing a concurrent insert would corrupt addressing. The
// lock is process-local; deployments running several instances against one
// store keep the append-model race described in the tabular package.
type sheetLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSheetLocks() *sheetLocks {
	return &sheetLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for the named sheet and returns its release func.
func (l *sheetLocks) lock(name string) func() {
	l.mu.Lock()
	m, ok := l.locks[name]
	if !ok {
		m = &sync.Mutex{}
		l.locks[name] = m
	}
	l.mu.Unlock()

	m.Lock()
	return m.Unlock
}
