package sync

import (
	"unsafe"

	stdatomic "sync/atomic"

	"github.com/gholt/dumpster"
)

// gcBox is the heap block jointly owned by every Gc[T] that points to it.
// strong is first and un-parameterized by T so its address can serve as a
// T-agnostic AllocationID, exactly as in the unsync variant.
type gcBox[T dumpster.Collectable] struct {
	strong stdatomic.Uint64
	value  T
}

func (b *gcBox[T]) id() dumpster.AllocationID {
	return dumpster.AllocationID(uintptr(unsafe.Pointer(&b.strong)))
}

func (b *gcBox[T]) countPtr() *stdatomic.Uint64 {
	return &b.strong
}
