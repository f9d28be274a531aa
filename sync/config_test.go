package sync

import (
	"testing"

	"github.com/gholt/dumpster"
)

func TestConfigureOptTableOrderResizes(t *testing.T) {
	resetGlobal()
	Configure(OptTableOrder(1<<20), OptTrigger(func(dumpster.CollectInfo) bool { return false }))
	if TableOrder() < 20 {
		t.Fatalf("expected a table order able to hold 2^20 entries, got order %d", TableOrder())
	}
	destroyed := false
	g := New[*leaf](&leaf{destroyed: &destroyed})
	g.Drop()
	if !destroyed {
		t.Fatal("expected sole owner's Drop to destroy the value immediately after reconfiguring the table")
	}
}
