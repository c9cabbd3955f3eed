package main

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/sirkon/pcg/internal/capability"
	"github.com/sirkon/pcg/internal/engine"
	"github.com/sirkon/pcg/internal/fixture"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/validity"
)

// checkExpect compares analysis outcome with fixture expectations and
// returns mismatches found.
func checkExpect(want *fixture.Expect, res *engine.Results, err error) []string {
	if want.Error != "" {
		switch {
		case err == nil:
			return []string{fmt.Sprintf("error containing %q expected", want.Error)}
		case !strings.Contains(err.Error(), want.Error):
			return []string{fmt.Sprintf("error containing %q expected, got %v", want.Error, err)}
		}

		return nil
	}
	if err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}

	var mismatches []string
	for _, loc := range slices.SortedFunc(maps.Keys(want.After), mir.Location.Cmp) {
		got, ok := res.CapabilitiesAt(loc)
		if !ok {
			mismatches = append(mismatches, fmt.Sprintf("after %s: location is not reached", loc))
			continue
		}
		mismatches = append(mismatches, compareCapabilities("after "+loc.String(), want.After[loc], got)...)
	}

	if want.Return != nil {
		mismatches = append(mismatches, compareCapabilities("return", want.Return, res.ReturnCapabilities())...)
	}

	for _, b := range want.Unreached {
		if _, ok := res.Block(b); ok {
			mismatches = append(mismatches, fmt.Sprintf("%s must not be reached", b))
		}
	}

	if want.Reports != nil {
		var got []validity.Rule
		for _, r := range res.Reports() {
			got = append(got, r.RuleCode)
		}
		if !slices.Equal(want.Reports, got) {
			mismatches = append(mismatches, fmt.Sprintf("reports: want %v, got %v", want.Reports, got))
		}
	}

	return mismatches
}

func compareCapabilities(what string, want, got capability.PlaceCapabilities) []string {
	var res []string
	for _, p := range want.Places() {
		k, ok := got[p]
		if !ok {
			k = capability.None
		}
		if k != want[p] {
			res = append(res, fmt.Sprintf("%s: %s must be %s, got %s in %s", what, p, want[p], k, got))
		}
	}

	return res
}
