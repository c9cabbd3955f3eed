package engine

import (
	"log/slog"

	"github.com/sirkon/pcg/internal/mir"
	"github.com/sirkon/pcg/internal/validity"
)

// DefaultMaxIterations bounds block visits of an analysis when the config
// does not.
const DefaultMaxIterations = 10000

// Recorder receives block entry states of every fixpoint iteration.
type Recorder interface {
	RecordIteration(block mir.BlockID, iteration int, entry *Domain)
}

// Config sets up an engine.
type Config struct {
	// Validity selects what failed consistency checks do. Zero means warn.
	Validity validity.Mode

	// MaxIterations bounds the number of block visits. Zero means
	// DefaultMaxIterations.
	MaxIterations int

	// Recording enables passing iteration states to Recorder.
	Recording bool
	Recorder  Recorder

	// Diverging lists functions whose calls never return.
	Diverging []string

	Logger *slog.Logger
}
