package sync

import (
	stdsync "sync"
	"testing"

	"github.com/gholt/dumpster"
)

type leaf struct {
	destroyed *bool
}

func (l *leaf) GCAccept(dumpster.Visitor) error { return nil }

func (l *leaf) GCDestroy() {
	if l.destroyed != nil {
		*l.destroyed = true
	}
}

func resetGlobal() {
	global = newDumpsterState()
	global.trigger.setFn(func(dumpster.CollectInfo) bool { return false })
}

func TestSingleAllocationDropsImmediately(t *testing.T) {
	resetGlobal()
	destroyed := false
	g := New[*leaf](&leaf{destroyed: &destroyed})
	g.Drop()
	if !destroyed {
		t.Fatal("expected sole owner's Drop to destroy the value immediately")
	}
	if global.table.len() != 0 {
		t.Fatalf("expected empty table, got %d entries", global.table.len())
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
	if global.table.len() != 0 {
		t.Fatalf("expected empty table after cascading drop, got %d entries", global.table.len())
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
	g2.Drop()
	if !destroyed {
		t.Fatal("expected last owner's Drop to destroy the value")
	}
}

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

// TestTableIsFullForcesCollection shrinks the table down to 4 slots (so
// is_full trips at 3 live entries) and checks that crossing that threshold
// forces a collection even though the configured trigger predicate always
// declines, matching spec.md §4.5's "the shared variant additionally forces
// collection when the dumpster reports full."
func TestTableIsFullForcesCollection(t *testing.T) {
	resetGlobal()
	Configure(OptTableOrder(4), OptTrigger(func(dumpster.CollectInfo) bool { return false }))

	var destroyed [3]bool
	gs := make([]Gc[*cell], 3)
	for i := range gs {
		gs[i] = New[*cell](&cell{destroyed: &destroyed[i]})
		self := gs[i].Clone()
		(*gs[i].Value()).next = &self
	}

	gs[0].Drop()
	gs[1].Drop()
	if global.table.isFull() {
		t.Fatal("table should not yet report full after only 2 of 4 slots are in use")
	}
	if destroyed[0] || destroyed[1] {
		t.Fatal("collection should not have run before the table crossed half load")
	}

	gs[2].Drop()
	for i, d := range destroyed {
		if !d {
			t.Fatalf("expected is_full to force a collection reclaiming cycle %d", i)
		}
	}
}

// TestConcurrentChainOfCyclesAcrossGoroutines builds 100 independent
// self-cycles, has 8 goroutines drop roughly a share of them each
// concurrently, and checks a final forced collection reclaims every one:
// the table's lock-free inserts/removes must survive concurrent use
// without corrupting each other's slots.
func TestConcurrentChainOfCyclesAcrossGoroutines(t *testing.T) {
	resetGlobal()
	const n = 100
	const workers = 8

	destroyed := make([]bool, n)
	gs := make([]Gc[*cell], n)
	for i := range gs {
		gs[i] = New[*cell](&cell{destroyed: &destroyed[i]})
		self := gs[i].Clone()
		(*gs[i].Value()).next = &self
	}

	var wg stdsync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := worker; i < n; i += workers {
				gs[i].Drop()
			}
		}(w)
	}
	wg.Wait()

	CollectAll()
	for i, d := range destroyed {
		if !d {
			t.Fatalf("expected cycle %d to be reclaimed after collection", i)
		}
	}
}
