package unsync

import (
	"unsafe"

	"github.com/gholt/dumpster"
)

// gcBox is the heap block jointly owned by every Gc[T] that points to it.
// Its layout places strong first and un-parameterized by T so its address
// can serve as a T-agnostic AllocationID (see id).
type gcBox[T dumpster.Collectable] struct {
	strong uint64
	value  T
}

// id returns the AllocationID naming this box: the address of its strong
// count, which is stable for the box's entire lifetime and shared by every
// Gc[T] pointing at it.
func (b *gcBox[T]) id() dumpster.AllocationID {
	return dumpster.AllocationID(uintptr(unsafe.Pointer(&b.strong)))
}

// countPtr exposes the strong count for the collector's reachability
// comparison (true count vs. cyclicRefCount) without requiring the
// collector to know T.
func (b *gcBox[T]) countPtr() *uint64 {
	return &b.strong
}
