package main

import (
	"maps"
	"slices"
)

// Calls to some functions never return. The analysis does not follow their
// targets, so the body state after such a call is not joined anywhere.
//
// Configured names override predefined ones.
type knownDivergingFuncs struct {
	known map[string]DivergeKind
}

func newKnownDivergingFuncs(custom []string) *knownDivergingFuncs {
	predefined := map[string]DivergeKind{
		// Core.
		"core::panicking::panic":              DivergeKindPanic,
		"core::panicking::panic_fmt":          DivergeKindPanic,
		"core::panicking::panic_nounwind":     DivergeKindAbort,
		"core::panicking::panic_bounds_check": DivergeKindPanic,
		"core::option::unwrap_failed":         DivergeKindPanic,
		"core::result::unwrap_failed":         DivergeKindPanic,

		// Std.
		"std::panicking::begin_panic": DivergeKindPanic,
		"std::process::exit":          DivergeKindExit,
		"std::process::abort":         DivergeKindAbort,

		// Short names used by hand written bodies.
		"panic": DivergeKindPanic,
		"exit":  DivergeKindExit,
		"abort": DivergeKindAbort,
	}

	known := maps.Clone(predefined)
	for _, name := range custom {
		known[name] = DivergeKindConfigured
	}

	return &knownDivergingFuncs{
		known: known,
	}
}

func (k *knownDivergingFuncs) names() []string {
	return slices.Sorted(maps.Keys(k.known))
}

func (k *knownDivergingFuncs) kindOf(name string) DivergeKind {
	return k.known[name]
}
