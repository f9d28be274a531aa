package sync

import (
	stdsync "sync"
	stdatomic "sync/atomic"

	"github.com/gholt/dumpster"
)

// cleanupRecord mirrors unsync's cleanupRecord: enough T-erased function
// pointers to visit, read the count of, and destroy an allocation generically.
type cleanupRecord struct {
	box         dumpster.ErasedPtr
	accept      func(dumpster.ErasedPtr, dumpster.Visitor) error
	countPtr    func(dumpster.ErasedPtr) *stdatomic.Uint64
	destroyRoot func(dumpster.ErasedPtr, *destroyer)
}

// dumpsterState is the process-wide state backing every sync.Gc: the
// lock-free table, the trigger counters, and the two locks that give a
// running collection exclusive access to the table. Clones take neither
// lock; a drop that needs the table waits while a collection runs.
type dumpsterState struct {
	table   *table
	trigger triggerState

	// tableMu is held for reading by every drop that mutates the table and
	// for writing by the one goroutine running a collection, so a
	// collection's three passes never race a concurrent insert/remove.
	tableMu stdsync.RWMutex
	// collectMu ensures at most one goroutine is ever the active collector;
	// everyone else's TryLock fails and they simply skip triggering their
	// own collection this time, trusting the active one to make progress.
	collectMu stdsync.Mutex
}

func newDumpsterState() *dumpsterState {
	return &dumpsterState{table: newTable(defaultTableOrder)}
}

var global = newDumpsterState()
