package dumpster

import (
	"fmt"

	"github.com/gholt/brimtext"
)

// CollectInfo reports the two counters the trigger policy bases its
// decisions on: how many Gc drops have happened since the last collection,
// and how many Gc handles are currently believed live.
type CollectInfo struct {
	DropsSinceLastCollect uint64
	LiveGcs               uint64
}

// String renders the counters as an aligned two-column table, in the same
// shape the teacher repo renders its own stats (see ValuesStoreStats.String
// in the example pack).
func (ci CollectInfo) String() string {
	return brimtext.Align([][]string{
		{"dropsSinceLastCollect", fmt.Sprintf("%d", ci.DropsSinceLastCollect)},
		{"liveGcs", fmt.Sprintf("%d", ci.LiveGcs)},
	}, nil)
}

// TriggerFunc decides, given the current CollectInfo, whether a collection
// should run right now. Both variants call the configured TriggerFunc (or
// DefaultTrigger if none was set) after every Gc drop that didn't free its
// allocation immediately; the sync variant skips the call and collects
// outright when its table is past half load.
type TriggerFunc func(info CollectInfo) bool

// DefaultTrigger implements the 2*drops >= live amortization rule: a
// collection runs once the number of drops since the last collection is at
// least half the number of currently live Gcs. Because each collection
// resets the drop counter to zero and costs O(live), this makes the
// amortized per-drop cost of cycle collection O(1) in the number of live
// Gcs.
func DefaultTrigger(info CollectInfo) bool {
	return 2*info.DropsSinceLastCollect >= info.LiveGcs
}
