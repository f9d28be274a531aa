package unsync

import (
	"testing"

	"github.com/gholt/dumpster"
)

func TestConfigureOptTriggerOverridesDefault(t *testing.T) {
	resetGlobal()
	var calls int
	Configure(OptTrigger(func(dumpster.CollectInfo) bool {
		calls++
		return false
	}))
	destroyed := false
	g := New[*leaf](&leaf{destroyed: &destroyed})
	clone := g.Clone()
	g.Drop()
	if calls == 0 {
		t.Fatal("expected the configured trigger to be consulted on drop")
	}
	clone.Drop()
}
