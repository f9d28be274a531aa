package unsync

import "github.com/gholt/dumpster"

// cleanupRecord is the per-allocation record the registry keeps for a box
// that has survived a drop without its count reaching zero: enough
// information to visit it generically during a later collection, without
// the registry itself knowing T.
type cleanupRecord struct {
	// box is the erased *gcBox[T] this record describes.
	box dumpster.ErasedPtr
	// accept calls box.value.GCAccept(v) for the T this record was built
	// for. Used as both build_graph_fn (pass 1) and, for allocations never
	// discovered as another allocation's field, sweep_fn (pass 2).
	accept func(dumpster.ErasedPtr, dumpster.Visitor) error
	// countPtr returns the box's strong count field, T-agnostically.
	countPtr func(dumpster.ErasedPtr) *uint64
	// destroyRoot sets the box's count to zero, walks it as a destroyer,
	// and runs its GCDestroy hook if it has one. Used only as the pass-3
	// entry point for an allocation the dumpster itself is iterating over
	// (as opposed to one reached via a parent's Gc field, which is handled
	// entirely inside Gc[T].GCAccept's destroyer case).
	destroyRoot func(dumpster.ErasedPtr, *destroyer)
}

// registry is the thread-local ("goroutine-local", by convention — see the
// package doc) dumpster: a map from AllocationID to cleanup record, plus the
// two counters the trigger policy watches.
type registry struct {
	toCollect map[dumpster.AllocationID]cleanupRecord
	trigger   triggerState
}

func newRegistry() *registry {
	return &registry{toCollect: make(map[dumpster.AllocationID]cleanupRecord)}
}

// global is the single process-wide registry backing every unsync.Gc.
var global = newRegistry()

func (r *registry) insert(id dumpster.AllocationID, c cleanupRecord) {
	if _, ok := r.toCollect[id]; !ok {
		r.toCollect[id] = c
	}
}

func (r *registry) remove(id dumpster.AllocationID) {
	delete(r.toCollect, id)
}

// snapshot returns the live registry map for passes 1-2 to range over
// without removing anything; only pass 3's drain actually empties it.
func (r *registry) snapshot() map[dumpster.AllocationID]cleanupRecord {
	return r.toCollect
}

// drain empties the registry, handing every entry it held to the caller.
func (r *registry) drain() map[dumpster.AllocationID]cleanupRecord {
	m := r.toCollect
	r.toCollect = make(map[dumpster.AllocationID]cleanupRecord)
	return m
}

// Len reports how many allocations are presently registered as
// cycle-collection candidates. Mostly useful for tests and diagnostics.
func Len() int {
	return len(global.toCollect)
}
