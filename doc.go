// Package dumpster provides a cycle-collecting shared-ownership pointer,
// Gc, for use as a drop-in replacement for a plain reference-counted handle
// in programs that may build reference cycles.
//
// Most collectors in Go's own territory are tracing collectors: the runtime
// already walks every root and reclaims whatever it can't reach, cycles
// included. dumpster exists for the case where you want C++/Rust-style
// deterministic cleanup hooks (see Destroyer) fired as soon as an allocation
// becomes unreachable, rather than whenever the host runtime's own GC next
// runs a cycle through it. It does this the same way
// github.com/Moxinilian/dumpster does in Rust: plain reference counting for
// the common case, with a synchronous trial-deletion cycle collector that
// runs only when reference-counting can no longer prove an allocation dead.
//
// Two variants are provided as sibling packages:
//
//   - github.com/gholt/dumpster/unsync — Gc[T] confined to a single
//     goroutine, with plain (non-atomic) counters and a registry that is a
//     single process-wide map. Go has no goroutine-local-storage facility,
//     so "confined to a single goroutine" is a caller discipline, not
//     something the type system enforces.
//   - github.com/gholt/dumpster/sync — Gc[T] safe to clone and drop from any
//     goroutine, with atomic counters and a fixed-size lock-free registry.
//
// A Gc's contained value may be garbage-collected soundly alongside any
// number of other Gc fields it owns, in any reference structure, as long as
// that value implements Collectable honestly: accept must delegate to every
// Gc field it directly owns. Scalar types with no Gc fields implement
// Collectable as a no-op.
package dumpster
