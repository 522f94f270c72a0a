package taskfeed

import (
	"fmt"
)

// RootStageID is the implicit root of every task. It is never described.
const RootStageID uint32 = 0

// TopLevelStageID is the root's single aggregating child. Solutions whose first
// sub-solution belongs to this stage are complete end-to-end solutions.
const TopLevelStageID uint32 = 1

// InterfaceFlags describes which data-flow directions a stage reads or writes.
type InterfaceFlags uint32

const (
	// ReadsStart indicates the stage consumes states from its start interface
	ReadsStart InterfaceFlags = 0x01

	// ReadsEnd indicates the stage consumes states from its end interface
	ReadsEnd InterfaceFlags = 0x02

	// WritesNextStart indicates the stage pushes states to the next stage's start
	WritesNextStart InterfaceFlags = 0x04

	// WritesPrevEnd indicates the stage pushes states to the previous stage's end
	WritesPrevEnd InterfaceFlags = 0x08
)

// AllInterfaceFlags lists the known flags in their canonical order.
var AllInterfaceFlags = []InterfaceFlags{ReadsStart, ReadsEnd, WritesNextStart, WritesPrevEnd}

// Has reports whether all bits of f are set.
func (fl InterfaceFlags) Has(f InterfaceFlags) bool {
	return fl&f == f
}

// String renders the set flags, e.g. "READS_START|WRITES_NEXT_START".
func (fl InterfaceFlags) String() string {
	names := map[InterfaceFlags]string{
		ReadsStart:      "READS_START",
		ReadsEnd:        "READS_END",
		WritesNextStart: "WRITES_NEXT_START",
		WritesPrevEnd:   "WRITES_PREV_END",
	}
	s := ""
	for _, f := range AllInterfaceFlags {
		if fl.Has(f) {
			if s != "" {
				s += "|"
			}
			s += names[f]
		}
	}
	if s == "" {
		return "NONE"
	}
	return s
}

// StageDescription announces one stage of the remote task hierarchy.
type StageDescription struct {
	ID       uint32         `json:"id" yaml:"id"`               // Stage id, unique and stable for the session
	ParentID uint32         `json:"parent_id" yaml:"parent_id"` // Parent stage id (0 = root)
	Name     string         `json:"name" yaml:"name"`           // Server-supplied display name
	Flags    InterfaceFlags `json:"flags" yaml:"flags"`         // Interface capability bitset
}

// TaskDescription is one batch of the description feed.
// An empty Stages list signals that the remote task was destroyed.
type TaskDescription struct {
	TaskID string             `json:"task_id" yaml:"task_id"`
	Stages []StageDescription `json:"stages" yaml:"stages"`
}

// StageStatistics reports the solution ids known for one stage.
// Solved is ordered by cost, best first.
type StageStatistics struct {
	ID     uint32   `json:"id" yaml:"id"`
	Solved []uint32 `json:"solved" yaml:"solved"`
	Failed []uint32 `json:"failed" yaml:"failed"`
}

// TaskStatistics is one batch of the statistics feed.
type TaskStatistics struct {
	TaskID string            `json:"task_id" yaml:"task_id"`
	Stages []StageStatistics `json:"stages" yaml:"stages"`
}

// SubSolution is one stage's contribution to a solution.
type SubSolution struct {
	StageID uint32 `json:"stage_id" yaml:"stage_id"`
	ID      uint32 `json:"id" yaml:"id"`
	Cost    Cost   `json:"cost" yaml:"cost"`
}

// SubTrajectory is an individually viewable slice of a solution.
// Trajectory holds the opaque geometric payload; its encoding belongs to the
// scene renderer and is never interpreted here.
type SubTrajectory struct {
	ID         uint32 `json:"id" yaml:"id"`
	StageID    uint32 `json:"stage_id" yaml:"stage_id"`
	Cost       Cost   `json:"cost" yaml:"cost"`
	Name       string `json:"name" yaml:"name"`
	Trajectory []byte `json:"trajectory,omitempty" yaml:"trajectory,omitempty"`
}

// Solution is the full content of a solution as published by the planner or
// returned by a fetch-by-id request.
type Solution struct {
	TaskID        string          `json:"task_id" yaml:"task_id"`
	SubSolution   []SubSolution   `json:"sub_solution" yaml:"sub_solution"`
	SubTrajectory []SubTrajectory `json:"sub_trajectory" yaml:"sub_trajectory"`
}

// TopLevelID returns the id of the top-level solution this message describes.
// ok is false for messages that are not complete end-to-end solutions: no
// sub-solutions, a first sub-solution belonging to another stage, or id 0.
func (s *Solution) TopLevelID() (id uint32, ok bool) {
	if len(s.SubSolution) == 0 {
		return 0, false
	}
	first := s.SubSolution[0]
	if first.StageID != TopLevelStageID || first.ID == 0 {
		return 0, false
	}
	return first.ID, true
}

// Validate checks if the StageDescription has valid field values.
func (d *StageDescription) Validate() error {
	if d.ID == RootStageID {
		return fmt.Errorf("stage id %d is reserved for the root", RootStageID)
	}
	if d.ID == d.ParentID {
		return fmt.Errorf("stage %d cannot be its own parent", d.ID)
	}
	return nil
}

// Validate checks every stage of the batch.
// An empty batch is valid: it marks the task as destroyed.
func (t *TaskDescription) Validate() error {
	for i := range t.Stages {
		if err := t.Stages[i].Validate(); err != nil {
			return fmt.Errorf("invalid stage at index %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks if the StageStatistics has valid field values.
func (s *StageStatistics) Validate() error {
	for i, id := range s.Solved {
		if id == 0 {
			return fmt.Errorf("stage %d: solved id at index %d is zero", s.ID, i)
		}
	}
	for i, id := range s.Failed {
		if id == 0 {
			return fmt.Errorf("stage %d: failed id at index %d is zero", s.ID, i)
		}
	}
	return nil
}

// Validate checks every stage of the batch.
func (t *TaskStatistics) Validate() error {
	for i := range t.Stages {
		if err := t.Stages[i].Validate(); err != nil {
			return fmt.Errorf("invalid statistics at index %d: %w", i, err)
		}
	}
	return nil
}

// Validate checks if the Solution has valid field values.
// Non-top-level solutions are valid; they are simply not cached by consumers.
func (s *Solution) Validate() error {
	for i, t := range s.SubTrajectory {
		if t.ID != 0 && t.StageID == RootStageID {
			return fmt.Errorf("sub trajectory %d at index %d references the root stage", t.ID, i)
		}
	}
	return nil
}
