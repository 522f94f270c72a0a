// Package report renders snapshots of the mirror for the CLI: the stage tree,
// a stage's solution table and single solutions, as text or JSONL.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/materialize"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/notify"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/solutions"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/tasktree"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
	"github.com/fatih/color"
)

var failed = color.New(color.FgRed)

// StageRow is one stage of a tree snapshot.
type StageRow struct {
	ID        uint32 `json:"id"`
	ParentID  uint32 `json:"parent_id"`
	Depth     int    `json:"depth"`
	Name      string `json:"name"`
	Flags     string `json:"flags"`
	Succeeded int    `json:"succeeded"`
	Failed    int    `json:"failed"`
	Destroyed bool   `json:"destroyed,omitempty"`
}

// SolutionRow is one row of a solution table snapshot.
type SolutionRow struct {
	ID           uint32        `json:"id"`
	CreationRank uint32        `json:"creation_rank"`
	CostRank     uint32        `json:"cost_rank"`
	Cost         taskfeed.Cost `json:"cost"`
	Name         string        `json:"name"`
}

// Tree walks the model depth-first in display order. Walking visits every
// stage, so later changes to them are notified.
func Tree(m *tasktree.Model) []StageRow {
	var rows []StageRow
	var walk func(parent tasktree.Index, parentID uint32, depth int)
	walk = func(parent tasktree.Index, parentID uint32, depth int) {
		for row := 0; row < m.RowCount(parent); row++ {
			idx := m.Index(row, tasktree.ColumnName, parent)
			id, _ := m.StageID(idx)
			name, _ := m.Data(idx, notify.RoleDisplay).(string)
			succeeded, _ := m.Data(idx.Sibling(tasktree.ColumnSucceeded), notify.RoleDisplay).(int)
			failedCount, _ := m.Data(idx.Sibling(tasktree.ColumnFailed), notify.RoleDisplay).(int)

			rows = append(rows, StageRow{
				ID:        id,
				ParentID:  parentID,
				Depth:     depth,
				Name:      name,
				Flags:     m.Flags(idx).String(),
				Succeeded: succeeded,
				Failed:    failedCount,
				Destroyed: m.Data(idx, notify.RoleForeground) == notify.ColorRed,
			})
			walk(idx, id, depth+1)
		}
	}
	walk(tasktree.Index{}, taskfeed.RootStageID, 0)
	return rows
}

// Solutions returns the visible rows of store in display order.
func Solutions(store *solutions.Store) []SolutionRow {
	rows := make([]SolutionRow, 0, store.RowCount())
	for row := 0; row < store.RowCount(); row++ {
		id, _ := store.ID(row)
		r, _ := store.Record(id)
		rows = append(rows, SolutionRow{
			ID:           r.ID,
			CreationRank: r.CreationRank,
			CostRank:     r.CostRank,
			Cost:         taskfeed.Cost(r.Cost),
			Name:         r.Name,
		})
	}
	return rows
}

// FormatTree writes the stage tree as an indented table with the solution
// counts of each stage. Returns the number of stages written.
func FormatTree(w io.Writer, m *tasktree.Model, namespace string) int {
	return FormatStages(w, Tree(m), namespace, m.Destroyed())
}

// FormatStages writes stage rows as an indented table. destroyed appends the
// task-destroyed notice.
func FormatStages(w io.Writer, rows []StageRow, namespace string, destroyed bool) int {
	if len(rows) == 0 {
		fmt.Fprintf(w, "No stages mirrored for namespace '%s'\n", namespace)
		return 0
	}

	fmt.Fprintf(w, "Task tree for namespace '%s':\n\n", namespace)
	fmt.Fprintf(w, "%-6s %-40s %5s %5s  %s\n", "ID", "NAME", "✓", "✗", "FLAGS")
	fmt.Fprintf(w, "%-6s %-40s %5s %5s  %s\n",
		"------", "----------------------------------------", "-----", "-----", "--------------------")

	for _, r := range rows {
		name := formatName(strings.Repeat("  ", r.Depth)+r.Name, 40)
		if r.Destroyed {
			name = failed.Sprintf("%-40s", name)
		} else {
			name = fmt.Sprintf("%-40s", name)
		}
		fmt.Fprintf(w, "%-6d %s %5d %5d  %s\n", r.ID, name, r.Succeeded, r.Failed, r.Flags)
	}

	if destroyed {
		fmt.Fprintf(w, "\n%s\n", failed.Sprint("remote task destroyed"))
	}

	countMsg := "stage"
	if len(rows) != 1 {
		countMsg = "stages"
	}
	fmt.Fprintf(w, "\n%d %s\n", len(rows), countMsg)

	return len(rows)
}

// FormatSolutions writes the visible solutions of a stage as a table.
// Failed solutions are printed in red. Returns the number of rows written.
func FormatSolutions(w io.Writer, store *solutions.Store, stageName string) int {
	return FormatSolutionRows(w, Solutions(store), stageName, store.Len())
}

// FormatSolutionRows writes solution rows as a table; total is the number of
// solutions the stage knows, shown or not.
func FormatSolutionRows(w io.Writer, rows []SolutionRow, stageName string, total int) int {
	if len(rows) == 0 {
		fmt.Fprintf(w, "No visible solutions for stage '%s'\n", stageName)
		return 0
	}

	fmt.Fprintf(w, "Solutions of stage '%s':\n\n", stageName)
	fmt.Fprintf(w, "%-5s %-8s %-10s %s\n", "#", "ID", "COST", "NAME")
	fmt.Fprintf(w, "%-5s %-8s %-10s %s\n", "-----", "--------", "----------", "------------------------------")

	for _, r := range rows {
		line := fmt.Sprintf("%-5d %-8d %-10s %s",
			r.CreationRank, r.ID, formatCost(r.Cost), formatName(r.Name, 30))
		if r.Cost.IsFailed() {
			line = failed.Sprint(line)
		}
		fmt.Fprintln(w, line)
	}

	fmt.Fprintf(w, "\n%d of %d solutions visible\n", len(rows), total)
	return len(rows)
}

// FormatJSONL writes rows as line-delimited JSON (JSONL) to the provided writer.
// Each row is written as a single JSON object on its own line.
func FormatJSONL[T any](w io.Writer, rows []T) error {
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to marshal row to JSON: %w", err)
		}
		if _, err := fmt.Fprintf(w, "%s\n", data); err != nil {
			return fmt.Errorf("failed to write JSONL output: %w", err)
		}
	}
	return nil
}

// FormatSolution writes a display solution step by step.
func FormatSolution(w io.Writer, d *materialize.DisplaySolution) {
	kind := "solution"
	if d.IsSlice() {
		kind = "sub-trajectory"
	}
	fmt.Fprintf(w, "%s %d (task '%s', cost %s)\n\n", kind, d.ID, d.TaskID, formatCost(d.Cost))

	for i, s := range d.Steps() {
		fmt.Fprintf(w, "  %2d. stage %-4d %-30s cost %-10s %d bytes\n",
			i+1, s.StageID, formatName(s.Name, 30), formatCost(s.Cost), len(s.Trajectory))
	}
}

// FormatUpdate writes a one-line summary of a feed message.
func FormatUpdate(w io.Writer, u *taskfeed.Update) {
	switch {
	case u.Description != nil:
		if len(u.Description.Stages) == 0 {
			fmt.Fprintf(w, "%-11s task '%s' destroyed\n", u.Kind(), u.Description.TaskID)
			return
		}
		fmt.Fprintf(w, "%-11s task '%s': %d stages\n", u.Kind(), u.Description.TaskID, len(u.Description.Stages))

	case u.Statistics != nil:
		solved, failedCount := 0, 0
		for _, s := range u.Statistics.Stages {
			solved += len(s.Solved)
			failedCount += len(s.Failed)
		}
		fmt.Fprintf(w, "%-11s task '%s': %d stages, %d solved, %d failed\n",
			u.Kind(), u.Statistics.TaskID, len(u.Statistics.Stages), solved, failedCount)

	case u.Solution != nil:
		if id, ok := u.Solution.TopLevelID(); ok {
			fmt.Fprintf(w, "%-11s task '%s': solution %d, %d sub-trajectories\n",
				u.Kind(), u.Solution.TaskID, id, len(u.Solution.SubTrajectory))
			return
		}
		fmt.Fprintf(w, "%-11s task '%s': partial solution\n", u.Kind(), u.Solution.TaskID)
	}
}

// formatCost renders a cost cell: "∞" for failures, "-" when unknown.
func formatCost(v any) string {
	switch c := v.(type) {
	case nil:
		return "-"
	case string:
		return c
	case taskfeed.Cost:
		return formatCost(c.Float64())
	case float64:
		if math.IsNaN(c) {
			return "-"
		}
		if math.IsInf(c, 1) {
			return "∞"
		}
		return fmt.Sprintf("%.4g", c)
	}
	return fmt.Sprint(v)
}

// formatName truncates names for table display. Empty names return "-".
func formatName(name string, width int) string {
	if strings.TrimSpace(name) == "" {
		return "-"
	}
	if r := []rune(name); len(r) > width {
		return string(r[:width-3]) + "..."
	}
	return name
}
