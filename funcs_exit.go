package main

import (
	"errors"

	"github.com/sirkon/pcg/internal/coupling"
	"github.com/sirkon/pcg/internal/engine"
	"github.com/sirkon/pcg/internal/fixture"
	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/validity"
)

var (
	errUsage    = errors.New("usage")
	errMismatch = errors.New("expectation mismatch")
)

type exitClass struct {
	err  error
	code int
}

// knownExitClasses maps error kinds to process exit codes. The first match
// wins, so more specific kinds go first.
var knownExitClasses = []exitClass{
	{err: errUsage, code: 2},
	{err: fixture.ErrSyntax, code: 3},
	{err: mir.ErrMalformedBody, code: 3},
	{err: validity.ErrUnsupported, code: 4},
	{err: validity.ErrInvariant, code: 5},
	{err: engine.ErrNoFixpoint, code: 6},
	{err: coupling.ErrIncompleteOracle, code: 7},
	{err: errMismatch, code: 8},
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}

	for _, c := range knownExitClasses {
		if errors.Is(err, c.err) {
			return c.code
		}
	}

	return 1
}
