package sync

import (
	stdatomic "sync/atomic"

	"github.com/gholt/dumpster"
	"github.com/spaolacci/murmur3"
)

// defaultTableOrder is the base-2 log of the table's default slot count:
// 2^12 = 4096 entries. Override with sync.OptTableOrder. The table never
// resizes once built; spec.md calls for a fixed-size registry for this
// variant rather than the unsync variant's growable map, trading an upper
// bound on in-flight cyclic allocations for lock-free inserts and removes.
const defaultTableOrder = 12

// slot is one cell of the table. key is zero when empty and otherwise holds
// 1+the allocation's address (so a real address, which is never zero on any
// platform Go targets, can't collide with the empty sentinel once shifted).
// value is written only by the goroutine that wins the key's CAS, and is
// safe to read without synchronization afterward because drop/collect never
// mutate a slot's key without first holding (Go's happens-before via the
// CAS itself, for the writer; readers during collection hold the
// collector's write lock).
type slot struct {
	key   stdatomic.Uintptr
	value cleanupRecord
}

// table is the lock-free open-addressing registry backing sync.Gc. Inserts
// and removes only ever touch their own slot's key via CAS; they never
// block on another goroutine's insert or remove. A collection holds
// tableMu (see dumpsterState in registry.go) for writing so passes 1-3
// can walk every occupied slot without entries appearing or disappearing
// mid-walk; drops hold it for reading around their insert or remove, so a
// drop that arrives during a collection waits for the collection to end.
type table struct {
	slots []slot
	mask  uintptr
	count stdatomic.Int64
}

// newTable builds a table with 2^order slots. order is clamped to at least
// 1 by the caller (resolveConfig).
func newTable(order uint) *table {
	size := uintptr(1) << order
	return &table{slots: make([]slot, size), mask: size - 1}
}

func hashID(id dumpster.AllocationID) uint64 {
	var buf [8]byte
	u := uint64(id)
	for i := 0; i < 8; i++ {
		buf[i] = byte(u >> (8 * i))
	}
	return murmur3.Sum64(buf[:])
}

// insert adds id's cleanup record to the table, probing linearly from id's
// hashed home slot. It reports ErrRegistryFull if the table has no empty
// slot within one full pass (every slot already holds some other live
// allocation). A duplicate insert of an id already present is a no-op,
// matching the unsync registry's insert semantics.
func (t *table) insert(id dumpster.AllocationID, c cleanupRecord) error {
	key := uintptr(id) + 1
	home := uintptr(hashID(id)) & t.mask
	size := uintptr(len(t.slots))
	probed := uintptr(0)
	for probed < size {
		idx := (home + probed) & t.mask
		s := &t.slots[idx]
		existing := s.key.Load()
		if existing == key {
			return nil
		}
		if existing != 0 {
			probed++
			continue
		}
		if s.key.CompareAndSwap(0, key) {
			s.value = c
			t.count.Add(1)
			return nil
		}
		// lost the race for this slot; re-read it without advancing.
	}
	return dumpster.ErrRegistryFull
}

// remove deletes id's entry, if present. It never returns an error: a
// remove racing a collector's drain simply finds the slot already empty.
func (t *table) remove(id dumpster.AllocationID) {
	key := uintptr(id) + 1
	home := uintptr(hashID(id)) & t.mask
	size := uintptr(len(t.slots))
	for i := uintptr(0); i < size; i++ {
		idx := (home + i) & t.mask
		s := &t.slots[idx]
		existing := s.key.Load()
		if existing == 0 {
			return
		}
		if existing == key {
			if s.key.CompareAndSwap(key, 0) {
				t.count.Add(-1)
			}
			return
		}
	}
}

// snapshot returns every id currently present, for passes 1-2 to range
// over. Only valid while the caller holds the collector's exclusive lock.
func (t *table) snapshot() map[dumpster.AllocationID]cleanupRecord {
	m := make(map[dumpster.AllocationID]cleanupRecord, t.count.Load())
	for i := range t.slots {
		s := &t.slots[i]
		key := s.key.Load()
		if key == 0 {
			continue
		}
		m[dumpster.AllocationID(key-1)] = s.value
	}
	return m
}

// drain empties every occupied slot and returns what it held. Only valid
// while the caller holds the collector's exclusive lock.
func (t *table) drain() map[dumpster.AllocationID]cleanupRecord {
	m := t.snapshot()
	for i := range t.slots {
		if t.slots[i].key.Load() != 0 {
			t.slots[i].key.Store(0)
		}
	}
	t.count.Store(0)
	return m
}

func (t *table) len() int {
	return int(t.count.Load())
}

// isFull reports whether the table's live-entry count exceeds half its slot
// count. Linear-probe open addressing degrades sharply as load factor
// approaches 1, so this is checked well before the table could ever
// actually fail to find a free slot, to give the trigger policy a chance to
// drain it under ordinary load rather than only on the reactive
// insert-failure path.
func (t *table) isFull() bool {
	return t.count.Load() > int64(len(t.slots))/2
}

func (t *table) order() uint {
	order := uint(0)
	for size := uintptr(1); size < uintptr(len(t.slots)); size <<= 1 {
		order++
	}
	return order
}
