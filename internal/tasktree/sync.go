package tasktree

import (
	"errors"
	"math"

	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
)

var knownFlags = func() taskfeed.InterfaceFlags {
	var all taskfeed.InterfaceFlags
	for _, f := range taskfeed.AllInterfaceFlags {
		all |= f
	}
	return all
}()

// ApplyDescriptions reconciles a description batch with the tree. Stages are
// created on first sight below an already known parent, then renamed (unless
// renamed by an observer) and given the batch's interface flags. Visited
// stages whose row changed are reported with one DataChanged over all columns.
//
// An empty batch marks the model destroyed; the tree itself is kept.
//
// Entries that cannot be applied are skipped and returned joined; the rest of
// the batch is still applied.
func (m *Model) ApplyDescriptions(stages []taskfeed.StageDescription) error {
	var errs []error

	for _, s := range stages {
		if s.ID == taskfeed.RootStageID {
			errs = append(errs, m.stageError(s.ID, s.ParentID, ErrReservedStage))
			continue
		}

		parent, ok := m.registry.lookup(s.ParentID)
		if !ok {
			errs = append(errs, m.stageError(s.ID, s.ParentID, ErrUnknownParent))
			continue
		}

		h, ok := m.registry.lookup(s.ID)
		if !ok {
			h = m.createChild(parent, s.ID)
		} else if m.nodes[h].parent != parent {
			// Keep the first parent, but still take the new name and flags.
			errs = append(errs, m.stageError(s.ID, s.ParentID, ErrParentMismatch))
		}

		n := &m.nodes[h]
		changed := false
		if n.state&nameChanged == 0 && n.name != s.Name {
			n.name = s.Name
			changed = true
		}
		if flags := s.Flags & knownFlags; flags != n.flags {
			n.flags = flags
			changed = true
		}

		if changed && n.visited() {
			idx := m.indexOf(h)
			m.observer.DataChanged(idx, idx.Sibling(ColumnFailed))
		}
	}

	if len(stages) == 0 {
		m.destroy()
	}

	return errors.Join(errs...)
}

// ApplyStatistics feeds each stage's solved ids (cost unknown) and failed ids
// (cost +Inf) into its solution store. Visited stages whose visible counts
// changed are reported over the two count columns.
func (m *Model) ApplyStatistics(stages []taskfeed.StageStatistics) error {
	var errs []error

	for _, s := range stages {
		h, ok := m.registry.lookup(s.ID)
		if !ok {
			errs = append(errs, m.stageError(s.ID, 0, ErrUnknownStage))
			continue
		}

		store := m.nodes[h].solutions
		solved := store.ProcessSolutionIDs(s.Solved, math.NaN())
		failed := store.ProcessSolutionIDs(s.Failed, math.Inf(1))

		if (solved || failed) && h != rootHandle && m.nodes[h].visited() {
			idx := m.indexOf(h)
			m.observer.DataChanged(idx.Sibling(ColumnSucceeded), idx.Sibling(ColumnFailed))
		}
	}

	return errors.Join(errs...)
}

// destroy marks the remote task gone. The first top-level row carries the
// marker; it is repainted only when an observer ever reached it.
func (m *Model) destroy() {
	if m.destroyed {
		return
	}
	m.destroyed = true
	m.logger.Info("remote task destroyed", "stages", m.Len())

	root := &m.nodes[rootHandle]
	if len(root.children) == 0 || !m.nodes[root.children[0]].visited() {
		return
	}
	idx := m.createIndex(0, ColumnName, rootHandle)
	m.observer.DataChanged(idx, idx.Sibling(ColumnFailed))
}

func (m *Model) stageError(stageID, parentID uint32, err error) error {
	switch err {
	case ErrUnknownStage:
		m.logger.Error("no stage found for statistics", "stage_id", stageID)
	case ErrParentMismatch:
		m.logger.Warn("stage described under a different parent",
			"stage_id", stageID,
			"parent_id", parentID)
	default:
		m.logger.Error("stage description rejected",
			"stage_id", stageID,
			"parent_id", parentID,
			"error", err)
	}
	return &StageError{StageID: stageID, ParentID: parentID, Err: err}
}
