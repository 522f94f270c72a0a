package filter

import (
	"testing"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/report"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
	"github.com/stretchr/testify/assert"
)

func TestMatchesStage(t *testing.T) {
	row := report.StageRow{ID: 2, Name: "pick object", Succeeded: 3, Failed: 1}

	tests := []struct {
		name     string
		criteria Criteria
		want     bool
	}{
		{"no filters", Criteria{}, true},
		{"glob matches", Criteria{NameGlob: "pick*"}, true},
		{"glob misses", Criteria{NameGlob: "place*"}, false},
		{"alternatives", Criteria{NameGlob: "{place,pick}*"}, true},
		{"malformed glob", Criteria{NameGlob: "[pick"}, false},
		{"failed only", Criteria{FailedOnly: true}, true},
		{"cost filter ignored for stages", Criteria{MinCost: 100}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.criteria.MatchesStage(row))
		})
	}

	assert.False(t, (&Criteria{FailedOnly: true}).MatchesStage(report.StageRow{Name: "ok"}))
}

func TestMatchesSolution(t *testing.T) {
	cheap := report.SolutionRow{ID: 1, Name: "grasp", Cost: 0.5}
	pending := report.SolutionRow{ID: 2, Cost: taskfeed.Unknown()}
	failed := report.SolutionRow{ID: 3, Cost: taskfeed.Failed()}

	c := Criteria{MinCost: 1}
	assert.False(t, c.MatchesSolution(cheap))
	assert.False(t, c.MatchesSolution(pending), "unknown cost never passes a cost filter")
	assert.True(t, c.MatchesSolution(failed))

	c = Criteria{FailedOnly: true}
	assert.False(t, c.MatchesSolution(cheap))
	assert.True(t, c.MatchesSolution(failed))

	c = Criteria{NameGlob: "gr*"}
	assert.True(t, c.MatchesSolution(cheap))
	assert.False(t, c.MatchesSolution(pending))
}

func TestRowsKeepOrder(t *testing.T) {
	rows := []report.SolutionRow{
		{ID: 3, Cost: 2},
		{ID: 1, Cost: 0.1},
		{ID: 2, Cost: 5},
	}
	c := Criteria{MinCost: 1}
	got := c.Solutions(rows)
	assert.Equal(t, []uint32{3, 2}, []uint32{got[0].ID, got[1].ID})

	stages := (&Criteria{NameGlob: "p*"}).Stages([]report.StageRow{{Name: "pick"}, {Name: "move"}, {Name: "place"}})
	assert.Len(t, stages, 2)
}

func TestHasFilters(t *testing.T) {
	assert.False(t, (&Criteria{}).HasFilters())
	assert.True(t, (&Criteria{NameGlob: "*"}).HasFilters())
	assert.True(t, (&Criteria{FailedOnly: true}).HasFilters())
	assert.True(t, (&Criteria{MinCost: 0.1}).HasFilters())
}
