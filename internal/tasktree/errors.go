package tasktree

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownParent is reported for a description whose parent was never described.
	ErrUnknownParent = errors.New("unknown parent stage")
	// ErrUnknownStage is reported for statistics of a stage that was never described.
	ErrUnknownStage = errors.New("unknown stage")
	// ErrReservedStage is reported for a description of the root stage.
	ErrReservedStage = errors.New("stage id is reserved for the root")
	// ErrParentMismatch is reported when a known stage is described under another parent.
	ErrParentMismatch = errors.New("stage parent cannot change")
)

// StageError describes why one entry of a feed batch was not applied.
type StageError struct {
	StageID  uint32
	ParentID uint32
	Err      error
}

func (e *StageError) Error() string {
	if errors.Is(e.Err, ErrUnknownParent) || errors.Is(e.Err, ErrParentMismatch) {
		return fmt.Sprintf("stage %d (parent %d): %v", e.StageID, e.ParentID, e.Err)
	}
	return fmt.Sprintf("stage %d: %v", e.StageID, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
