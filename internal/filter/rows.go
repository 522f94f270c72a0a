package filter

import (
	"math"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/report"
	"github.com/bmatcuk/doublestar/v4"
)

// Criteria defines filtering criteria for report rows.
// All filters are ANDed together - a row must match ALL criteria to pass.
type Criteria struct {
	NameGlob   string  // Glob pattern (with {a,b} alternatives) for the name, empty = no filter
	FailedOnly bool    // Stages with failures / failed solutions only
	MinCost    float64 // Solutions cheaper than this are dropped, 0 = no filter
}

// MatchesStage returns true if the stage row matches all filter criteria.
func (c *Criteria) MatchesStage(r report.StageRow) bool {
	if !c.matchesName(r.Name) {
		return false
	}
	if c.FailedOnly && r.Failed == 0 {
		return false
	}
	return true
}

// MatchesSolution returns true if the solution row matches all filter criteria.
// Solutions without a cost yet never pass a MinCost filter.
func (c *Criteria) MatchesSolution(r report.SolutionRow) bool {
	if !c.matchesName(r.Name) {
		return false
	}
	if c.FailedOnly && !r.Cost.IsFailed() {
		return false
	}
	if c.MinCost > 0 {
		cost := r.Cost.Float64()
		if math.IsNaN(cost) || cost < c.MinCost {
			return false
		}
	}
	return true
}

func (c *Criteria) matchesName(name string) bool {
	if c.NameGlob == "" {
		return true
	}
	matched, err := doublestar.Match(c.NameGlob, name)
	return err == nil && matched
}

// HasFilters returns true if any filters are active.
func (c *Criteria) HasFilters() bool {
	return c.NameGlob != "" || c.FailedOnly || c.MinCost > 0
}

// Stages returns the rows matching c, keeping their order.
func (c *Criteria) Stages(rows []report.StageRow) []report.StageRow {
	return keep(rows, c.MatchesStage)
}

// Solutions returns the rows matching c, keeping their order.
func (c *Criteria) Solutions(rows []report.SolutionRow) []report.SolutionRow {
	return keep(rows, c.MatchesSolution)
}

func keep[T any](rows []T, match func(T) bool) []T {
	out := make([]T, 0, len(rows))
	for _, r := range rows {
		if match(r) {
			out = append(out, r)
		}
	}
	return out
}
