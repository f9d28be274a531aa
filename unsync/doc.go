// Package unsync provides Gc, a single-goroutine-confined cycle-collecting
// shared-ownership pointer. It is the variant to reach for when a reference
// graph never crosses a goroutine boundary: its counters are plain
// (non-atomic) words and its registry is a single process-wide map with no
// synchronization at all, so it is considerably cheaper than the sync
// variant's atomic counters and lock-free table.
//
// Go has no goroutine-local-storage facility (goroutines are not OS
// threads, and the runtime exposes no per-goroutine key/value store), so
// unlike a thread-local in a system with OS threads, "confined to a single
// goroutine" is a caller discipline here, not something enforced by the
// type system. Two goroutines sharing a Gc from this package concurrently
// is a data race exactly as two goroutines sharing a plain, un-synchronized
// Go map would be.
//
// Because there is also no goroutine-exit hook to attach a final
// collect-all to (the Rust original runs one when its owning OS thread
// exits), a program that confines an unsync.Gc graph to a short-lived
// goroutine should call CollectAll before that goroutine ends if it wants
// any surviving cycles reclaimed deterministically; otherwise they sit in
// the package-wide registry until some other unsync.Gc activity happens to
// trigger a collection.
package unsync
