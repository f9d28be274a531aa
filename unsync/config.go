package unsync

import "github.com/gholt/dumpster"

type config struct {
	trigger dumpster.TriggerFunc
}

// resolveConfig mirrors valuelocmap's resolveConfig shape; this variant has
// no env-var-tunable knob of its own (its registry is an ordinary growable
// map, not a fixed-size table), so opts is the only input.
func resolveConfig(opts ...func(*config)) *config {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// OptTrigger overrides the default collection trigger predicate
// (dumpster.DefaultTrigger).
func OptTrigger(fn dumpster.TriggerFunc) func(*config) {
	return func(cfg *config) {
		cfg.trigger = fn
	}
}

// Configure applies opts to the package's global registry. SetTrigger is a
// shorthand for the common case of just wanting a different trigger.
func Configure(opts ...func(*config)) {
	cfg := resolveConfig(opts...)
	global.trigger.fn = cfg.trigger
}
