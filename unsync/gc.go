package unsync

import "github.com/gholt/dumpster"

// Gc is a single-goroutine-confined, cycle-collecting shared-ownership
// pointer to a T. See the package doc for the confinement contract.
type Gc[T dumpster.Collectable] struct {
	box *gcBox[T]
}

// New allocates a gcBox holding value with strong count 1 and returns a Gc
// referencing it. The allocation is not registered with the registry: a
// freshly constructed value cannot yet be part of a cycle, since nothing
// else has had a chance to reference it.
func New[T dumpster.Collectable](value T) Gc[T] {
	global.trigger.onConstruct()
	return Gc[T]{box: &gcBox[T]{strong: 1, value: value}}
}

// Clone returns a new Gc referencing the same allocation as g, incrementing
// its strong count.
func (g Gc[T]) Clone() Gc[T] {
	g.box.strong++
	global.trigger.onConstruct()
	return Gc[T]{box: g.box}
}

// Value returns a shared view of the contained value. It never fails: as
// long as g exists, its box cannot have been destroyed.
func (g Gc[T]) Value() *T {
	return &g.box.value
}

// Drop releases this handle's ownership of its allocation. It is infallible
// from the caller's point of view: a collection that the drop's trigger
// check kicks off can only destroy allocations, never error out of Drop
// itself (a Collectable that reports ErrInaccessible just makes the
// collector more conservative for this round).
func (g Gc[T]) Drop() {
	g.box.strong--
	if g.box.strong == 0 {
		global.remove(g.id())
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
	global.insert(g.id(), makeCleanup(g.box))
	global.trigger.onDrop()
	if global.trigger.shouldCollect() {
		CollectAll()
	}
}

func (g Gc[T]) id() dumpster.AllocationID {
	return g.box.id()
}

// GCAccept implements dumpster.Collectable so a Gc field can be nested
// inside another Collectable's own GCAccept. It is also the entry point the
// collector's three passes use once they've reached this field: which of
// the three things it does depends on the concrete type of v, which is
// always one of this package's own unexported visitor types for a
// collection in progress on *this* variant. A Visitor belonging to a
// collection of the other variant (or anything else) matches none of the
// cases below and is silently ignored — see the dumpster.Visitor doc for
// why that keeps the two variants' graphs apart.
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
		g.box.strong = 0
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

func countPtrFn[T dumpster.Collectable](e dumpster.ErasedPtr) *uint64 {
	return dumpster.Specify[gcBox[T]](e).countPtr()
}

func destroyRootFn[T dumpster.Collectable](e dumpster.ErasedPtr, d *destroyer) {
	box := dumpster.Specify[gcBox[T]](e)
	box.strong = 0
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
