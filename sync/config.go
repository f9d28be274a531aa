package sync

import (
	"os"
	"strconv"

	"github.com/gholt/brimutil"
	"github.com/gholt/dumpster"
)

type config struct {
	tableOrder uint
	trigger    dumpster.TriggerFunc
}

// resolveConfig builds a config from, in increasing priority:
// DUMPSTER_SYNC_TABLE_ORDER, then opts. Mirrors valuelocmap's
// resolveConfig in gholt-valuestore.
func resolveConfig(opts ...func(*config)) *config {
	cfg := &config{tableOrder: defaultTableOrder}
	if env := os.Getenv("DUMPSTER_SYNC_TABLE_ORDER"); env != "" {
		if val, err := strconv.Atoi(env); err == nil && val > 0 {
			cfg.tableOrder = uint(val)
		}
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.tableOrder < 1 {
		cfg.tableOrder = 1
	}
	return cfg
}

// OptTableOrder sizes the lock-free table to hold at least capacity
// in-flight collection candidates at once, rounding up to the nearest
// power of two the same way valuesstore.go sizes its value page buffers
// with brimutil.PowerOfTwoNeeded.
func OptTableOrder(capacity int) func(*config) {
	return func(cfg *config) {
		if capacity < 1 {
			capacity = 1
		}
		cfg.tableOrder = uint(brimutil.PowerOfTwoNeeded(uint64(capacity)))
	}
}

// OptTrigger overrides the default collection trigger predicate
// (dumpster.DefaultTrigger).
func OptTrigger(fn dumpster.TriggerFunc) func(*config) {
	return func(cfg *config) {
		cfg.trigger = fn
	}
}

// Configure rebuilds the package's global table and trigger from opts. It
// is meant to be called once during program startup, before any Gc is
// constructed: rebuilding the table after allocations are already
// registered would silently drop them from collection consideration.
func Configure(opts ...func(*config)) {
	cfg := resolveConfig(opts...)
	global.table = newTable(cfg.tableOrder)
	global.trigger.setFn(cfg.trigger)
}
