package sync

import (
	stdatomic "sync/atomic"

	"github.com/gholt/dumpster"
)

// triggerState mirrors unsync's triggerState but with atomic counters, since
// New/Clone/Drop can run concurrently from any goroutine.
type triggerState struct {
	dropsSinceLastCollect stdatomic.Uint64
	liveGcs               stdatomic.Uint64
	fn                    stdatomic.Pointer[dumpster.TriggerFunc]
}

func (t *triggerState) info() dumpster.CollectInfo {
	return dumpster.CollectInfo{
		DropsSinceLastCollect: t.dropsSinceLastCollect.Load(),
		LiveGcs:               t.liveGcs.Load(),
	}
}

func (t *triggerState) onConstruct() {
	t.liveGcs.Add(1)
}

func (t *triggerState) onDrop() {
	t.dropsSinceLastCollect.Add(1)
	t.onImmediateDrop()
}

func (t *triggerState) onImmediateDrop() {
	t.liveGcs.Add(^uint64(0))
}

func (t *triggerState) reset() {
	t.dropsSinceLastCollect.Store(0)
}

// shouldCollect reports whether a collection should run now. full is forced
// true by the caller when the table's is_full condition holds, which wins
// outright regardless of what the configured predicate says: a table past
// half load needs draining no matter what the amortization heuristic thinks
// about drops-since-last-collect.
func (t *triggerState) shouldCollect(full bool) bool {
	if full {
		return true
	}
	fn := t.fn.Load()
	if fn == nil {
		return dumpster.DefaultTrigger(t.info())
	}
	return (*fn)(t.info())
}

func (t *triggerState) setFn(fn dumpster.TriggerFunc) {
	if fn == nil {
		t.fn.Store(nil)
		return
	}
	t.fn.Store(&fn)
}
