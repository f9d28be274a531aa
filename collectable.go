package dumpster

// Collectable is implemented by any value that may be stored inside a Gc and
// that may itself directly own further Gc fields (of the same variant or the
// other one). Implementations must delegate to every Gc field they directly
// own, in a stable order, via that field's own GCAccept method, stopping and
// returning the first error encountered.
//
// A scalar type that owns no Gc fields at all implements Collectable as a
// no-op returning nil.
//
// If an implementation hides a Gc field from GCAccept, that field's target
// may be destroyed by the cycle collector while still reachable through the
// hidden field: undefined behavior. GCAccept's correctness is what the
// collector's soundness rests on.
type Collectable interface {
	// GCAccept dispatches v to every Gc field this value directly owns. It
	// returns a non-nil error only when this value's interior could not be
	// inspected right now (for instance, because it is guarded by a lock
	// presently held elsewhere); the collector treats such a value
	// conservatively as reachable for the current pass and moves on.
	GCAccept(v Visitor) error
}

// Destroyer is optionally implemented by a Collectable value that needs to
// run cleanup logic when its allocation is reclaimed, the way a destructor
// would: either by the Drop of its last Gc or by the cycle collector.
// GCDestroy runs only after every Gc field this value
// directly owns has already had its own destruction (if any) set in motion,
// so GCDestroy must never dereference one of its receiver's own Gc fields.
type Destroyer interface {
	GCDestroy()
}

// Visitor is the token threaded through a GCAccept call so a Gc field can
// tell which of the collector's three passes is asking. It carries no
// methods: user code never implements Visitor, and should treat it as
// opaque. Each Gc[T]'s own GCAccept type-asserts the Visitor it receives
// against the small set of concrete visitor types its own package's
// collector uses; a Visitor belonging to the other variant's collector (or
// to no collector at all) simply fails every such assertion and is ignored,
// which is what keeps the two variants from ever treating each other's
// fields as graph edges.
type Visitor interface{}
