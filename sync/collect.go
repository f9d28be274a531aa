package sync

import (
	"math"
	stdatomic "sync/atomic"

	"github.com/gholt/dumpster"
)

// refEntry mirrors unsync's: what pass 1 learns about one allocation while
// walking the table's candidates. countPtr reads the box's true strong
// count directly, without needing to know T.
type refEntry struct {
	ptr            dumpster.ErasedPtr
	countPtr       func() uint64
	accept         func(dumpster.ErasedPtr, dumpster.Visitor) error
	cyclicRefCount uint64
}

type buildGraphVisitor struct {
	visited      map[dumpster.AllocationID]bool
	refs         map[dumpster.AllocationID]*refEntry
	inaccessible map[dumpster.AllocationID]bool
}

// recordEdge registers that the allocation currently being walked holds a
// Gc to id, creating its refEntry on first sight. It reports whether id is
// being visited for the first time in this pass.
func (v *buildGraphVisitor) recordEdge(id dumpster.AllocationID, e dumpster.ErasedPtr, countPtr *stdatomic.Uint64, accept func(dumpster.ErasedPtr, dumpster.Visitor) error) bool {
	entry, ok := v.refs[id]
	if !ok {
		entry = &refEntry{ptr: e, countPtr: countPtr.Load, accept: accept}
		v.refs[id] = entry
	}
	if entry.cyclicRefCount < math.MaxUint64 {
		entry.cyclicRefCount++
	}
	isNew := !v.visited[id]
	if isNew {
		v.visited[id] = true
	}
	return isNew
}

type sweepVisitor struct {
	reachable map[dumpster.AllocationID]bool
}

func (v *sweepVisitor) mark(id dumpster.AllocationID) bool {
	if v.reachable[id] {
		return false
	}
	v.reachable[id] = true
	return true
}

type destroyer struct {
	reachable map[dumpster.AllocationID]bool
	visited   map[dumpster.AllocationID]bool
}

// collectAll runs the three trial-deletion passes over every allocation
// currently in the table, under the table's exclusive write lock, and
// drains it. At most one goroutine at a time ever gets this far:
// collectMu.TryLock is how CollectAll decides whether it's the one doing
// the work or should simply return, trusting whichever goroutine is
// already collecting to make progress on its behalf.
func collectAll() {
	if !global.collectMu.TryLock() {
		return
	}
	defer global.collectMu.Unlock()

	global.tableMu.Lock()
	defer global.tableMu.Unlock()

	snap := global.table.snapshot()

	graph := &buildGraphVisitor{
		visited:      make(map[dumpster.AllocationID]bool, len(snap)),
		refs:         make(map[dumpster.AllocationID]*refEntry, len(snap)),
		inaccessible: make(map[dumpster.AllocationID]bool),
	}
	for id, rec := range snap {
		if graph.visited[id] {
			continue
		}
		graph.visited[id] = true
		cp := rec.countPtr(rec.box)
		graph.refs[id] = &refEntry{ptr: rec.box, countPtr: cp.Load, accept: rec.accept}
		if err := rec.accept(rec.box, graph); err != nil {
			graph.inaccessible[id] = true
		}
	}

	sweep := &sweepVisitor{reachable: make(map[dumpster.AllocationID]bool, len(graph.refs))}
	for id := range graph.inaccessible {
		if sweep.mark(id) {
			if entry := graph.refs[id]; entry != nil {
				_ = entry.accept(entry.ptr, sweep)
			}
		}
	}
	for id, entry := range graph.refs {
		if entry.countPtr() == entry.cyclicRefCount {
			continue
		}
		if sweep.mark(id) {
			_ = entry.accept(entry.ptr, sweep)
		}
	}

	d := &destroyer{reachable: sweep.reachable, visited: make(map[dumpster.AllocationID]bool, len(snap))}
	drained := global.table.drain()
	for id, rec := range drained {
		if graph.inaccessible[id] {
			// Left alone this round, but kept as a candidate so a later
			// collection looks at it again. The table was just drained, so
			// there is room.
			_ = global.table.insert(id, rec)
			continue
		}
		if d.reachable[id] || d.visited[id] {
			continue
		}
		d.visited[id] = true
		rec.destroyRoot(rec.box, d)
	}
	global.trigger.reset()
}

// CollectAll forces an immediate trial-deletion collection over the table's
// current contents, reclaiming whatever unreachable cycles it finds. Safe
// to call from any goroutine at any time; concurrent callers simply defer
// to whichever one gets there first.
func CollectAll() {
	collectAll()
}

// SetTrigger overrides the predicate deciding whether a Drop that didn't
// free its allocation outright should kick off a collection. A nil fn
// restores dumpster.DefaultTrigger.
func SetTrigger(fn dumpster.TriggerFunc) {
	global.trigger.setFn(fn)
}

// Info reports the counters the trigger predicate sees.
func Info() dumpster.CollectInfo {
	return global.trigger.info()
}

// Len reports how many allocations the table presently holds as collection
// candidates.
func Len() int {
	return global.table.len()
}

// TableOrder reports the base-2 log of the table's current slot count, as
// last set by Configure/OptTableOrder.
func TableOrder() uint {
	return global.table.order()
}
