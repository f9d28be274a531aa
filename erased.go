package dumpster

import "unsafe"

// AllocationID identifies a single GcBox for as long as it remains
// allocated. It is the address of the box's strong-count field, which in
// both the unsync and sync variants sits in a non-generic location
// (gcBox[T]'s strong field is never itself parameterized by T, even though
// the surrounding box is), so two Gcs to the same box always compare equal
// here regardless of what T the box happens to hold.
type AllocationID uintptr

// ErasedPtr is a type-erased carrier for a pointer to a GcBox of unknown
// element type. It is a precondition, unchecked by ErasedPtr itself, that
// Specify is called with the same T that Erase was called with.
//
// The original (Rust) design budgets two machine words here to accommodate
// fat pointers to unsized types. Go's generics never produce such a
// pointer — GcBox[T] is monomorphized per T and is always a thin pointer —
// so one unsafe.Pointer is sufficient. ErasedPtr stays a distinct type
// rather than a bare unsafe.Pointer so the "specify back with the same T"
// contract is visible at every call site instead of being just another
// unsafe.Pointer floating around.
type ErasedPtr struct {
	ptr unsafe.Pointer
}

// Erase hides p behind an ErasedPtr.
func Erase[T any](p *T) ErasedPtr {
	return ErasedPtr{ptr: unsafe.Pointer(p)}
}

// Specify recovers a *T from an ErasedPtr constructed by Erase[T]. Calling
// it with any T other than the one used to construct e is undefined
// behavior.
func Specify[T any](e ErasedPtr) *T {
	return (*T)(e.ptr)
}

// IsNil reports whether e was never assigned (its zero value).
func (e ErasedPtr) IsNil() bool {
	return e.ptr == nil
}
