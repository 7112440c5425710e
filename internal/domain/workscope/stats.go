// Package workscope computes range-filtered statistics over a batch's levels.
package workscope

import (
	"fmt"

	"github.com/playforge/levelboard/internal/domain/level"
)

// RangeFilter is an inclusive level-number window. A nil *RangeFilter means
// no filter: every level is in scope.
type RangeFilter struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Validate checks if the range is well-formed.
func (r *RangeFilter) Validate() error {
	if r.Min < 1 {
		return fmt.Errorf("min must be at least 1, got %d", r.Min)
	}
	if r.Max < r.Min {
		return fmt.Errorf("max (%d) must not be below min (%d)", r.Max, r.Min)
	}
	return nil
}

// Contains reports whether a level number falls inside the window.
func (r *RangeFilter) Contains(number int) bool {
	if r == nil {
		return true
	}
	return number >= r.Min && number <= r.Max
}

// Stats is an immutable snapshot of the counts shown by the work-scope panel.
type Stats struct {
	Total            int     `json:"total"`
	Generated        int     `json:"generated"`
	PlaytestRequired int     `json:"playtest_required"`
	Reviewing        int     `json:"reviewing"`
	Approved         int     `json:"approved"`
	CompletionPct    float64 `json:"completion_pct"`
}

// ComputeStats filters levels to the given range and derives the panel
// counts. Pure: no side effects, no I/O. An empty filtered set yields all
// zeros and 0% completion.
func ComputeStats(levels []level.Level, rng *RangeFilter) Stats {
	var s Stats
	for i := range levels {
		l := &levels[i]
		if !rng.Contains(l.Number) {
			continue
		}
		s.Total++
		switch l.Status {
		case level.StatusGenerated:
			s.Generated++
		case level.StatusNeedsRework:
			s.Reviewing++
		case level.StatusApproved, level.StatusExported:
			s.Approved++
		}
		if l.PlaytestRequired && l.Status != level.StatusApproved {
			s.PlaytestRequired++
		}
	}
	if s.Total > 0 {
		s.CompletionPct = float64(s.Approved) * 100 / float64(s.Total)
	}
	return s
}
