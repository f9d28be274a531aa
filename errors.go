package dumpster

import "errors"

// ErrInaccessible is returned from a Collectable's GCAccept implementation
// when that value's interior cannot presently be inspected. The collector
// treats the offending allocation as reachable for the current pass and
// continues; ErrInaccessible is never itself fatal.
var ErrInaccessible error = errors.New("dumpster: value interior not accessible for inspection")

// ErrRegistryFull is the value sync.Gc.Drop panics with when the sync
// variant's fixed-size lock-free registry has no free slot even after a
// forced collection, i.e. more candidates are still reachable than the
// table (sized with OptTableOrder) has slots. Drop has no error result, so
// this error is never returned, only raised through that panic.
var ErrRegistryFull error = errors.New("dumpster: sync registry full after forced collection")
