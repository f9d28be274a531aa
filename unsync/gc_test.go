package unsync

import (
	"testing"

	"github.com/gholt/dumpster"
)

// leaf is a Collectable with no outgoing Gc references, used as the
// cycle-free base case in several tests below.
type leaf struct {
	destroyed *bool
}

func (l *leaf) GCAccept(dumpster.Visitor) error { return nil }

func (l *leaf) GCDestroy() {
	if l.destroyed != nil {
		*l.destroyed = true
	}
}

// resetGlobal gives each test a fresh, empty registry with automatic
// triggering disabled, so a test can control exactly when collection
// happens and assert on the state in between. TestDefaultTriggerFiresAutomatically
// is the one exception, restoring the real default.
func resetGlobal() {
	global = newRegistry()
	global.trigger.fn = func(dumpster.CollectInfo) bool { return false }
}

func TestSingleAllocationDropsImmediately(t *testing.T) {
	resetGlobal()
	destroyed := false
	g := New[*leaf](&leaf{destroyed: &destroyed})
	g.Drop()
	if !destroyed {
		t.Fatal("expected sole owner's Drop to destroy the value immediately")
	}
	if Len() != 0 {
		t.Fatalf("expected empty registry, got %d entries", Len())
	}
}

// box is a Collectable that owns a single Gc field outright, with no cycle
// involved: used to exercise Drop's non-cyclic cascade into owned fields.
type box struct {
	inner *Gc[*leaf]
}

func (b *box) GCAccept(v dumpster.Visitor) error {
	if b.inner != nil {
		return b.inner.GCAccept(v)
	}
	return nil
}

func TestDropCascadesIntoOwnedFieldWithoutCycles(t *testing.T) {
	resetGlobal()
	destroyed := false
	inner := New[*leaf](&leaf{destroyed: &destroyed})
	outer := New[*box](&box{inner: &inner})

	outer.Drop()
	if !destroyed {
		t.Fatal("expected dropping the sole owner to cascade into its owned Gc field and destroy it")
	}
	if Len() != 0 {
		t.Fatalf("expected empty registry after cascading drop, got %d entries", Len())
	}
}

func TestDropCascadeDoesNotFreeSharedNonCyclicChild(t *testing.T) {
	resetGlobal()
	destroyed := false
	leafGc := New[*leaf](&leaf{destroyed: &destroyed})
	innerClone := leafGc.Clone()
	outer := New[*box](&box{inner: &innerClone})

	outer.Drop()
	if destroyed {
		t.Fatal("dropping the owning box must not free a child still held by another live Gc")
	}

	leafGc.Drop()
	if !destroyed {
		t.Fatal("expected the child to be freed once its last remaining owner drops")
	}
}

func TestCloneKeepsValueAliveUntilLastDrop(t *testing.T) {
	resetGlobal()
	destroyed := false
	g1 := New[*leaf](&leaf{destroyed: &destroyed})
	g2 := g1.Clone()

	g1.Drop()
	if destroyed {
		t.Fatal("value destroyed while a clone still owns it")
	}
	if Len() != 1 {
		t.Fatalf("expected one registry entry after first drop, got %d", Len())
	}

	g2.Drop()
	if !destroyed {
		t.Fatal("expected last owner's Drop to destroy the value")
	}
}

// cell is a Collectable that can hold a Gc to another cell, letting tests
// build self-cycles and longer cyclic chains.
type cell struct {
	destroyed *bool
	next      *Gc[*cell]
}

func (c *cell) GCAccept(v dumpster.Visitor) error {
	if c.next != nil {
		return c.next.GCAccept(v)
	}
	return nil
}

func (c *cell) GCDestroy() {
	if c.destroyed != nil {
		*c.destroyed = true
	}
}

func TestSelfCycleIsCollected(t *testing.T) {
	resetGlobal()
	destroyed := false
	g := New[*cell](&cell{destroyed: &destroyed})
	self := g.Clone()
	(*g.Value()).next = &self

	g.Drop()
	if destroyed {
		t.Fatal("self-referencing cell destroyed too early")
	}
	CollectAll()
	if !destroyed {
		t.Fatal("expected CollectAll to reclaim an unreachable self-cycle")
	}
	if Len() != 0 {
		t.Fatalf("expected empty registry after collection, got %d entries", Len())
	}
}

func TestTwoCycleIsCollected(t *testing.T) {
	resetGlobal()
	var aDestroyed, bDestroyed bool
	a := New[*cell](&cell{destroyed: &aDestroyed})
	b := New[*cell](&cell{destroyed: &bDestroyed})

	aToB := b.Clone()
	bToA := a.Clone()
	(*a.Value()).next = &aToB
	(*b.Value()).next = &bToA

	a.Drop()
	b.Drop()
	if aDestroyed || bDestroyed {
		t.Fatal("two-cycle destroyed before collection ran")
	}

	CollectAll()
	if !aDestroyed || !bDestroyed {
		t.Fatal("expected CollectAll to reclaim a two-allocation cycle")
	}
}

func TestRootRetainingCycleSurvives(t *testing.T) {
	resetGlobal()
	var aDestroyed, bDestroyed bool
	a := New[*cell](&cell{destroyed: &aDestroyed})
	b := New[*cell](&cell{destroyed: &bDestroyed})

	aToB := b.Clone()
	bToA := a.Clone()
	(*a.Value()).next = &aToB
	(*b.Value()).next = &bToA

	// keep an extra handle to a alive: the cycle is still reachable from
	// outside the dumpster, so collection must not destroy it.
	root := a.Clone()

	a.Drop()
	b.Drop()
	CollectAll()
	if aDestroyed || bDestroyed {
		t.Fatal("collection destroyed a cycle still reachable from a live root")
	}

	root.Drop()
	CollectAll()
	if !aDestroyed || !bDestroyed {
		t.Fatal("expected collection to reclaim the cycle once its last root dropped")
	}
}

// lockedCell behaves like cell but reports itself inaccessible while locked
// is true, the way a type guarded by its own lock might while that lock is
// held elsewhere.
type lockedCell struct {
	destroyed *bool
	locked    *bool
	next      *Gc[*lockedCell]
}

func (c *lockedCell) GCAccept(v dumpster.Visitor) error {
	if c.locked != nil && *c.locked {
		return dumpster.ErrInaccessible
	}
	if c.next != nil {
		return c.next.GCAccept(v)
	}
	return nil
}

func (c *lockedCell) GCDestroy() {
	if c.destroyed != nil {
		*c.destroyed = true
	}
}

func TestInaccessibleValueTreatedAsReachable(t *testing.T) {
	resetGlobal()
	destroyed := false
	locked := true
	g := New[*lockedCell](&lockedCell{destroyed: &destroyed, locked: &locked})
	self := g.Clone()
	(*g.Value()).next = &self

	g.Drop()
	CollectAll()
	if destroyed {
		t.Fatal("expected an inaccessible allocation to survive collection conservatively")
	}

	locked = false
	CollectAll()
	if !destroyed {
		t.Fatal("expected collection to reclaim the cycle once it became inspectable")
	}
}

func TestDefaultTriggerFiresAutomatically(t *testing.T) {
	resetGlobal()
	SetTrigger(nil)
	var destroyed [4]bool
	gs := make([]Gc[*cell], 4)
	for i := range gs {
		gs[i] = New[*cell](&cell{destroyed: &destroyed[i]})
	}
	// wire gs[i] -> gs[i] (self-cycles), all kept only by the slice.
	for i := range gs {
		self := gs[i].Clone()
		(*gs[i].Value()).next = &self
	}
	for i := range gs {
		gs[i].Drop()
	}
	// Four self-cycles make eight live Gcs. The third Drop brings that to
	// 2*drops (6) >= live (5), so the default trigger has already run a
	// collection on its own by now.
	if !destroyed[0] || !destroyed[1] || !destroyed[2] {
		t.Fatal("expected the default trigger to collect the first three cycles without an explicit CollectAll")
	}
	// The fourth Drop came after that collection reset the drop counter
	// (2*1 < 4), so an explicit collection catches the last cycle.
	CollectAll()
	for i, d := range destroyed {
		if !d {
			t.Fatalf("expected collection to have reclaimed cycle %d", i)
		}
	}
}
