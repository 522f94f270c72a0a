package report

import (
	"bytes"
	"io"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/materialize"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/solutions"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/tasktree"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newModel(t *testing.T) *tasktree.Model {
	t.Helper()
	m := tasktree.New(tasktree.WithLogger(quiet))
	require.NoError(t, m.ApplyDescriptions([]taskfeed.StageDescription{
		{ID: 1, ParentID: 0, Name: "pick_place", Flags: taskfeed.ReadsStart},
		{ID: 2, ParentID: 1, Name: "pick"},
		{ID: 3, ParentID: 2, Name: "approach"},
		{ID: 4, ParentID: 1, Name: "place"},
	}))
	require.NoError(t, m.ApplyStatistics([]taskfeed.StageStatistics{
		{ID: 1, Solved: []uint32{10, 11}, Failed: []uint32{12}},
	}))
	return m
}

func TestTree(t *testing.T) {
	rows := Tree(newModel(t))
	require.Len(t, rows, 4)

	var ids []uint32
	var depths []int
	for _, r := range rows {
		ids = append(ids, r.ID)
		depths = append(depths, r.Depth)
	}
	assert.Equal(t, []uint32{1, 2, 3, 4}, ids)
	assert.Equal(t, []int{0, 1, 2, 1}, depths)

	assert.Equal(t, uint32(2), rows[2].ParentID)
	assert.Equal(t, "READS_START", rows[0].Flags)
	assert.Equal(t, 2, rows[0].Succeeded)
	assert.Equal(t, 1, rows[0].Failed)
	assert.False(t, rows[0].Destroyed)
}

func TestFormatTree(t *testing.T) {
	t.Run("indented stages with counts", func(t *testing.T) {
		var buf bytes.Buffer
		n := FormatTree(&buf, newModel(t), "demo")
		assert.Equal(t, 4, n)

		out := buf.String()
		assert.Contains(t, out, "Task tree for namespace 'demo'")
		assert.Contains(t, out, "✓")
		assert.Contains(t, out, "    approach")
		assert.Contains(t, out, "4 stages")
		assert.NotContains(t, out, "destroyed")
	})

	t.Run("destroyed task", func(t *testing.T) {
		m := newModel(t)
		require.NoError(t, m.ApplyDescriptions(nil))

		rows := Tree(m)
		assert.True(t, rows[0].Destroyed)
		assert.False(t, rows[1].Destroyed)

		var buf bytes.Buffer
		FormatTree(&buf, m, "demo")
		assert.Contains(t, buf.String(), "remote task destroyed")
	})

	t.Run("empty tree", func(t *testing.T) {
		var buf bytes.Buffer
		n := FormatTree(&buf, tasktree.New(tasktree.WithLogger(quiet)), "demo")
		assert.Equal(t, 0, n)
		assert.Equal(t, "No stages mirrored for namespace 'demo'\n", buf.String())
	})
}

func newStore() *solutions.Store {
	s := solutions.New(solutions.WithSort(solutions.ColumnCost, solutions.Ascending), solutions.WithLogger(quiet))
	s.ProcessSolutionIDs([]uint32{3, 1}, math.NaN())
	s.ProcessSolutionIDs([]uint32{4}, math.Inf(1))
	s.SetData(1, 0.5, "grasp")
	return s
}

func TestSolutions(t *testing.T) {
	rows := Solutions(newStore())
	require.Len(t, rows, 3)

	assert.Equal(t, uint32(3), rows[0].ID)
	assert.Equal(t, uint32(4), rows[1].ID, "equal cost ranks keep creation order")
	assert.Equal(t, uint32(1), rows[2].ID)
	assert.Equal(t, "grasp", rows[2].Name)
	assert.Equal(t, taskfeed.Cost(0.5), rows[2].Cost)

	var buf bytes.Buffer
	require.NoError(t, FormatJSONL(&buf, rows))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.JSONEq(t, `{"id":3,"creation_rank":2,"cost_rank":1,"cost":"nan","name":""}`, lines[0])
	assert.Contains(t, lines[1], `"cost":"inf"`)
	assert.Contains(t, lines[2], `"cost":0.5`)
}

func TestFormatSolutions(t *testing.T) {
	t.Run("all visible", func(t *testing.T) {
		var buf bytes.Buffer
		n := FormatSolutions(&buf, newStore(), "pick")
		assert.Equal(t, 3, n)

		out := buf.String()
		assert.Contains(t, out, "Solutions of stage 'pick'")
		assert.Contains(t, out, "∞")
		assert.Contains(t, out, "grasp")
		assert.Contains(t, out, "3 of 3 solutions visible")
	})

	t.Run("ceiling hides failures", func(t *testing.T) {
		store := newStore()
		store.SetMaxCost(10)

		var buf bytes.Buffer
		FormatSolutions(&buf, store, "pick")
		assert.NotContains(t, buf.String(), "∞")
		assert.Contains(t, buf.String(), "2 of 3 solutions visible")
	})

	t.Run("nothing visible", func(t *testing.T) {
		var buf bytes.Buffer
		n := FormatSolutions(&buf, solutions.New(), "pick")
		assert.Equal(t, 0, n)
		assert.Equal(t, "No visible solutions for stage 'pick'\n", buf.String())
	})
}

func TestFormatSolution(t *testing.T) {
	d := materialize.NewDisplaySolution(&taskfeed.Solution{
		TaskID:      "pick_place",
		SubSolution: []taskfeed.SubSolution{{StageID: 1, ID: 7, Cost: 2}},
		SubTrajectory: []taskfeed.SubTrajectory{
			{ID: 8, StageID: 2, Cost: 1, Name: "grasp", Trajectory: []byte("abcd")},
			{ID: 9, StageID: 4, Cost: 1, Name: "release"},
		},
	})

	var buf bytes.Buffer
	FormatSolution(&buf, d)
	assert.Contains(t, buf.String(), "solution 7 (task 'pick_place', cost 2)")
	assert.Contains(t, buf.String(), "grasp")
	assert.Contains(t, buf.String(), "4 bytes")

	buf.Reset()
	FormatSolution(&buf, d.Slice(1))
	assert.Contains(t, buf.String(), "sub-trajectory 9")
	assert.NotContains(t, buf.String(), "grasp")
}

func TestFormatUpdate(t *testing.T) {
	tests := []struct {
		name   string
		update *taskfeed.Update
		want   string
	}{
		{
			name:   "description",
			update: &taskfeed.Update{Description: &taskfeed.TaskDescription{TaskID: "t", Stages: make([]taskfeed.StageDescription, 2)}},
			want:   "description task 't': 2 stages\n",
		},
		{
			name:   "destroyed",
			update: &taskfeed.Update{Description: &taskfeed.TaskDescription{TaskID: "t"}},
			want:   "description task 't' destroyed\n",
		},
		{
			name: "statistics",
			update: &taskfeed.Update{Statistics: &taskfeed.TaskStatistics{TaskID: "t", Stages: []taskfeed.StageStatistics{
				{ID: 1, Solved: []uint32{1, 2}, Failed: []uint32{3}},
			}}},
			want: "statistics  task 't': 1 stages, 2 solved, 1 failed\n",
		},
		{
			name: "top-level solution",
			update: &taskfeed.Update{Solution: &taskfeed.Solution{TaskID: "t",
				SubSolution: []taskfeed.SubSolution{{StageID: 1, ID: 4}}}},
			want: "solution    task 't': solution 4, 0 sub-trajectories\n",
		},
		{
			name:   "partial solution",
			update: &taskfeed.Update{Solution: &taskfeed.Solution{TaskID: "t"}},
			want:   "solution    task 't': partial solution\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			FormatUpdate(&buf, tt.update)
			assert.Equal(t, tt.want, buf.String())
		})
	}
}

func TestFormatName(t *testing.T) {
	assert.Equal(t, "-", formatName("  ", 10))
	assert.Equal(t, "pick", formatName("pick", 10))
	assert.Equal(t, "approac...", formatName("approach_object", 10))
}

func TestFormatRows(t *testing.T) {
	t.Run("stage rows", func(t *testing.T) {
		var buf bytes.Buffer
		n := FormatStages(&buf, []StageRow{{ID: 4, Depth: 1, Name: "grasp", Failed: 2}}, "demo", true)
		assert.Equal(t, 1, n)
		assert.Contains(t, buf.String(), "  grasp")
		assert.Contains(t, buf.String(), "remote task destroyed")
		assert.Contains(t, buf.String(), "1 stage\n")
	})

	t.Run("solution rows", func(t *testing.T) {
		var buf bytes.Buffer
		n := FormatSolutionRows(&buf, []SolutionRow{{ID: 9, CreationRank: 3, Cost: taskfeed.Failed()}}, "pick", 5)
		assert.Equal(t, 1, n)
		assert.Contains(t, buf.String(), "∞")
		assert.Contains(t, buf.String(), "1 of 5 solutions visible")
	})
}
