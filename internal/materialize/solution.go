// Package materialize turns full solution messages into display solutions and
// caches them by solution id.
package materialize

import (
	"math"

	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
)

// Step is one sub-trajectory of a solution. Trajectory is the opaque payload
// handed to the scene renderer.
type Step struct {
	ID         uint32        `json:"id"`
	StageID    uint32        `json:"stage_id"`
	Cost       taskfeed.Cost `json:"cost"`
	Name       string        `json:"name"`
	Trajectory []byte        `json:"trajectory,omitempty"`
}

// DisplaySolution is a display-ready solution: either the full message or a
// slice showing a single step of it.
type DisplaySolution struct {
	TaskID string
	// ID is the solution id the object was built for; 0 for messages that are
	// not top-level solutions.
	ID   uint32
	Cost float64

	steps []Step
	index int // step shown by a slice; -1 for the full solution
}

// NewDisplaySolution builds the full display solution of msg.
func NewDisplaySolution(msg *taskfeed.Solution) *DisplaySolution {
	d := &DisplaySolution{
		TaskID: msg.TaskID,
		Cost:   math.NaN(),
		steps:  make([]Step, len(msg.SubTrajectory)),
		index:  -1,
	}
	if id, ok := msg.TopLevelID(); ok {
		d.ID = id
		d.Cost = msg.SubSolution[0].Cost.Float64()
	}
	for i, t := range msg.SubTrajectory {
		d.steps[i] = Step{
			ID:         t.ID,
			StageID:    t.StageID,
			Cost:       t.Cost,
			Name:       t.Name,
			Trajectory: t.Trajectory,
		}
	}
	return d
}

// Slice returns a display solution showing only step i of d. The step data is
// shared, not copied.
func (d *DisplaySolution) Slice(i int) *DisplaySolution {
	if i < 0 || i >= len(d.steps) {
		return nil
	}
	s := d.steps[i]
	return &DisplaySolution{
		TaskID: d.TaskID,
		ID:     s.ID,
		Cost:   s.Cost.Float64(),
		steps:  d.steps,
		index:  i,
	}
}

// IsSlice reports whether d shows a single step of a larger solution.
func (d *DisplaySolution) IsSlice() bool {
	return d.index >= 0
}

// Steps returns the steps d shows, in execution order.
func (d *DisplaySolution) Steps() []Step {
	if d.index >= 0 {
		return d.steps[d.index : d.index+1]
	}
	return d.steps
}

// Name returns the step name of a slice, or "" for a full solution.
func (d *DisplaySolution) Name() string {
	if d.index >= 0 {
		return d.steps[d.index].Name
	}
	return ""
}
