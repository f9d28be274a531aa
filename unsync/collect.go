package unsync

import (
	"math"

	"github.com/gholt/dumpster"
)

// refEntry is what pass 1 learns about a single allocation: how many of the
// edges it discovered while walking the registry's roots point at this
// allocation (cyclicRefCount), versus how many Gc handles to it actually
// exist (read later from countPtr). An allocation where those two numbers
// differ has an owner pass 1 never saw, so it cannot be part of an
// unreachable cycle.
type refEntry struct {
	ptr            dumpster.ErasedPtr
	countPtr       *uint64
	accept         func(dumpster.ErasedPtr, dumpster.Visitor) error
	cyclicRefCount uint64
}

// buildGraphVisitor is pass 1: starting from every allocation the registry
// has recorded as a drop survivor, walk its Collectable fields and count,
// for each allocation reached, how many of those walks point at it.
type buildGraphVisitor struct {
	visited      map[dumpster.AllocationID]bool
	refs         map[dumpster.AllocationID]*refEntry
	inaccessible map[dumpster.AllocationID]bool
}

// recordEdge registers that the allocation currently being walked holds a
// Gc to id, creating its refEntry on first sight. It reports whether id is
// being visited for the first time in this pass, which is the caller's cue
// to recurse into it.
func (v *buildGraphVisitor) recordEdge(id dumpster.AllocationID, e dumpster.ErasedPtr, countPtr *uint64, accept func(dumpster.ErasedPtr, dumpster.Visitor) error) bool {
	entry, ok := v.refs[id]
	if !ok {
		entry = &refEntry{ptr: e, countPtr: countPtr, accept: accept}
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

// sweepVisitor is pass 2: starting from every allocation whose true strong
// count exceeds what pass 1 counted (i.e. it has an owner outside the
// registry's candidate set, so it's a root), mark everything reachable from
// it.
type sweepVisitor struct {
	reachable map[dumpster.AllocationID]bool
}

// mark records id as reachable, reporting whether it was newly marked (the
// caller's cue to recurse into it).
func (v *sweepVisitor) mark(id dumpster.AllocationID) bool {
	if v.reachable[id] {
		return false
	}
	v.reachable[id] = true
	return true
}

// destroyer is pass 3: walk every allocation that survived the sweep
// unmarked, zeroing its count and running its GCDestroy hook. reachable is
// the result of pass 2; visited dedupes the destroy walk itself, since a
// single allocation can be reached both as a registry root and as a field
// of another allocation being destroyed in the same pass.
type destroyer struct {
	reachable map[dumpster.AllocationID]bool
	visited   map[dumpster.AllocationID]bool
}

// collectAll runs the three passes against r's current registry contents
// and empties it. Concurrent mutation of r during a collection is not a
// concern for this variant: it is only ever called from the one goroutine
// that's supposed to own r's Gcs.
func collectAll(r *registry) {
	snap := r.snapshot()

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
		graph.refs[id] = &refEntry{ptr: rec.box, countPtr: rec.countPtr(rec.box), accept: rec.accept}
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
		if *entry.countPtr == entry.cyclicRefCount {
			continue
		}
		if sweep.mark(id) {
			_ = entry.accept(entry.ptr, sweep)
		}
	}

	d := &destroyer{reachable: sweep.reachable, visited: make(map[dumpster.AllocationID]bool, len(snap))}
	drained := r.drain()
	for id, rec := range drained {
		if graph.inaccessible[id] {
			// Left alone this round, but kept as a candidate so a later
			// collection looks at it again.
			r.insert(id, rec)
			continue
		}
		if d.reachable[id] || d.visited[id] {
			continue
		}
		d.visited[id] = true
		rec.destroyRoot(rec.box, d)
	}
	r.trigger.reset()
}

// CollectAll forces an immediate trial-deletion collection over every
// allocation this variant's registry presently holds, reclaiming whatever
// unreachable cycles it finds. It is safe to call even when nothing is
// collectible; it simply resets the drop counter in that case.
func CollectAll() {
	collectAll(global)
}

// SetTrigger overrides the predicate that decides, after each Drop that
// doesn't free its allocation outright, whether to run a collection. A nil
// fn restores dumpster.DefaultTrigger.
func SetTrigger(fn dumpster.TriggerFunc) {
	global.trigger.fn = fn
}

// Info reports the counters the trigger predicate is evaluated against.
func Info() dumpster.CollectInfo {
	return global.trigger.info()
}
