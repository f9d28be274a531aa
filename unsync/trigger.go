package unsync

import "github.com/gholt/dumpster"

// triggerState holds the two counters spec.md's trigger policy is defined
// over, plus an optional override of the default 2*drops>=live predicate.
type triggerState struct {
	dropsSinceLastCollect uint64
	liveGcs               uint64
	fn                    dumpster.TriggerFunc
}

func (t *triggerState) info() dumpster.CollectInfo {
	return dumpster.CollectInfo{
		DropsSinceLastCollect: t.dropsSinceLastCollect,
		LiveGcs:               t.liveGcs,
	}
}

// onConstruct is called once per New or Clone: each produces one more live
// Gc handle.
func (t *triggerState) onConstruct() {
	t.liveGcs++
}

// onDrop is called when a drop's post-decrement count was positive (i.e.
// the allocation was registered with the dumpster rather than freed
// immediately): it counts towards the trigger's drop tally as well as
// shrinking the live count.
func (t *triggerState) onDrop() {
	t.dropsSinceLastCollect++
	t.onImmediateDrop()
}

// onImmediateDrop shrinks the live count for a Gc that went away, whether
// or not its drop registered anything with the dumpster.
func (t *triggerState) onImmediateDrop() {
	if t.liveGcs == 0 {
		panic("dumpster: live Gc underflow")
	}
	t.liveGcs--
}

func (t *triggerState) reset() {
	t.dropsSinceLastCollect = 0
}

func (t *triggerState) shouldCollect() bool {
	fn := t.fn
	if fn == nil {
		fn = dumpster.DefaultTrigger
	}
	return fn(t.info())
}
