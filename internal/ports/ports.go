// Package ports implements the Port Allocator (spec.md §4.4, C4): given
// the port ranges already occupied by existing kilds, find the lowest
// free window of the requested size.
package ports

import (
	"sort"

	"github.com/re-cinq/kild/internal/kilderr"
)

// upperBound is the highest port Allocate will consider before giving up.
const upperBound = 65535

// Range is an inclusive [Start, End] port window.
type Range struct {
	Start int
	End   int
}

// Overlaps reports whether r and other share any port.
func (r Range) Overlaps(other Range) bool {
	return r.Start <= other.End && other.Start <= r.End
}

// Allocate returns the lowest [s, s+count-1] window, with s >= basePort,
// disjoint from every range in occupied. occupied need not be sorted.
// Allocation is not transactional with concurrent allocators (spec.md
// §4.4): the caller is expected to serialize kild creation per project.
func Allocate(occupied []Range, count, basePort int) (Range, error) {
	if count <= 0 {
		count = 1
	}

	sorted := make([]Range, len(occupied))
	copy(sorted, occupied)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	candidate := basePort
	for _, occ := range sorted {
		window := Range{Start: candidate, End: candidate + count - 1}
		if window.End < occ.Start {
			// sorted by start: no later range can intersect this window.
			break
		}
		if window.Overlaps(occ) && occ.End+1 > candidate {
			candidate = occ.End + 1
		}
	}

	window := Range{Start: candidate, End: candidate + count - 1}
	if window.End > upperBound {
		return Range{}, &kilderr.PortRangeExhaustedError{Count: count, Base: basePort}
	}
	return window, nil
}
