package sync

import (
	stdatomic "sync/atomic"

	"github.com/gholt/dumpster"
)

// Gc is a thread-safe, cycle-collecting shared-ownership pointer to a T.
// Any number of goroutines may hold, clone, and drop Gcs to the same
// allocation concurrently.
type Gc[T dumpster.Collectable] struct {
	box *gcBox[T]
}

// New allocates a gcBox holding value with strong count 1. As in the
// unsync variant, a freshly constructed value is never registered: nothing
// else has had a chance to reference it yet, so it cannot be part of a
// cycle.
func New[T dumpster.Collectable](value T) Gc[T] {
	box := &gcBox[T]{value: value}
	box.strong.Store(1)
	global.trigger.onConstruct()
	return Gc[T]{box: box}
}

// Clone returns a new Gc referencing the same allocation as g, atomically
// incrementing its strong count.
func (g Gc[T]) Clone() Gc[T] {
	g.box.strong.Add(1)
	global.trigger.onConstruct()
	return Gc[T]{box: g.box}
}

// Value returns a shared view of the contained value.
func (g Gc[T]) Value() *T {
	return &g.box.value
}

// Drop releases this handle's ownership. If it was the last strong
// reference the allocation is freed immediately; otherwise it's (re-)
// registered with the table as a collection candidate and the trigger
// policy is consulted.
func (g Gc[T]) Drop() {
	remaining := g.box.strong.Add(^uint64(0))
	if remaining == 0 {
		global.tableMu.RLock()
		global.table.remove(g.id())
		global.tableMu.RUnlock()
		global.trigger.onImmediateDrop()
		// No cycle collection is running here, but the dying value may
		// itself own further Gc fields. Drop each one in turn, the way
		// field-wise destructor glue would: every Gc field this value
		// owns represents exactly one strong reference this value is
		// responsible for releasing, whether or not that field's own
		// target is shared with some other still-live owner.
		_ = g.box.value.GCAccept(&dropCascade{})
		runDestroyHook(&g.box.value)
		return
	}

	global.tableMu.RLock()
	err := global.table.insert(g.id(), makeCleanup(g.box))
	global.tableMu.RUnlock()
	if err != nil {
		// The table is full of other live candidates. Force a collection
		// to make room and retry once; if it's still full every one of
		// those candidates turned out to still be reachable, which means
		// the program has more concurrently in-flight cyclic allocations
		// than the table's fixed capacity and there is nothing further
		// collection alone can do about it.
		CollectAll()
		global.tableMu.RLock()
		err = global.table.insert(g.id(), makeCleanup(g.box))
		global.tableMu.RUnlock()
		if err != nil {
			panic(err)
		}
	}

	global.trigger.onDrop()
	if global.trigger.shouldCollect(global.table.isFull()) {
		CollectAll()
	}
}

func (g Gc[T]) id() dumpster.AllocationID {
	return g.box.id()
}

// GCAccept implements dumpster.Collectable. As with unsync.Gc, which of the
// three collection passes it performs is decided entirely by the dynamic
// type of v; a Visitor from the unsync package's own collector matches none
// of these cases and is silently ignored.
func (g Gc[T]) GCAccept(v dumpster.Visitor) error {
	switch vv := v.(type) {
	case *buildGraphVisitor:
		isNew := vv.recordEdge(g.id(), dumpster.Erase(g.box), g.box.countPtr(), acceptFn[T])
		if isNew {
			return g.box.value.GCAccept(v)
		}
		return nil
	case *sweepVisitor:
		if vv.mark(g.id()) {
			return g.box.value.GCAccept(v)
		}
		return nil
	case *destroyer:
		id := g.id()
		if vv.reachable[id] || vv.visited[id] {
			return nil
		}
		vv.visited[id] = true
		g.box.strong.Store(0)
		err := g.box.value.GCAccept(v)
		runDestroyHook(&g.box.value)
		return err
	case *dropCascade:
		g.Drop()
		return nil
	default:
		return nil
	}
}

// dropCascade is the Visitor a dying value's own GCAccept receives from the
// non-cyclic branch of Drop: one per owned Gc field, each dispatch just
// calls that field's own Drop, recursing through however much of the
// ownership chain was uniquely held.
type dropCascade struct{}

// runDestroyHook checks the value itself first (so a T such as *Foo with
// GCDestroy on *Foo is found), then its address (GCDestroy on *T for a
// non-pointer T).
func runDestroyHook[T dumpster.Collectable](value *T) {
	if d, ok := any(*value).(dumpster.Destroyer); ok {
		d.GCDestroy()
	} else if d, ok := any(value).(dumpster.Destroyer); ok {
		d.GCDestroy()
	}
}

func acceptFn[T dumpster.Collectable](e dumpster.ErasedPtr, v dumpster.Visitor) error {
	return dumpster.Specify[gcBox[T]](e).value.GCAccept(v)
}

func countPtrFn[T dumpster.Collectable](e dumpster.ErasedPtr) *stdatomic.Uint64 {
	return dumpster.Specify[gcBox[T]](e).countPtr()
}

func destroyRootFn[T dumpster.Collectable](e dumpster.ErasedPtr, d *destroyer) {
	box := dumpster.Specify[gcBox[T]](e)
	box.strong.Store(0)
	_ = box.value.GCAccept(d)
	runDestroyHook(&box.value)
}

func makeCleanup[T dumpster.Collectable](box *gcBox[T]) cleanupRecord {
	return cleanupRecord{
		box:         dumpster.Erase(box),
		accept:      acceptFn[T],
		countPtr:    countPtrFn[T],
		destroyRoot: destroyRootFn[T],
	}
}
