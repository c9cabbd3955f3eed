package oracle

import (
	"golang.org/x/tools/container/intsets"

	"github.com/sirkon/pcg/internal/mir"
)

// Liveness answers region liveness queries at block entries.
type Liveness struct {
	oracle Oracle
	cache  map[mir.BlockID]*intsets.Sparse
}

// NewLiveness creates a liveness adapter over the oracle.
func NewLiveness(o Oracle) *Liveness {
	return &Liveness{
		oracle: o,
		cache:  map[mir.BlockID]*intsets.Sparse{},
	}
}

// Complete reports whether the oracle output is complete.
func (l *Liveness) Complete() bool {
	return l.oracle.Complete()
}

// IsLive checks if the region is live at the entry of the block. Regions
// of blocks the oracle knows nothing about are considered live.
func (l *Liveness) IsLive(region mir.RegionVid, block mir.BlockID) bool {
	set, ok := l.cache[block]
	if !ok {
		regions, known := l.oracle.OriginsLiveAt(StartOf(mir.Location{Block: block}))
		if known {
			set = &intsets.Sparse{}
			for _, r := range regions {
				set.Insert(int(r))
			}
		}
		l.cache[block] = set
	}
	if set == nil {
		return true
	}

	return set.Has(int(region))
}
