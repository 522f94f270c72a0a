// Package notify defines the change-notification contract between the mirrored
// models and the views that observe them.
//
// Structural growth, teardown and full view rebuilds are bracketed: BeginChange is called
// before the model mutates and EndChange after, with the same arguments, so an
// observer keyed on stable row counts never sees a torn state. In-place value
// updates are reported with DataChanged over an inclusive cell range.
package notify

// Kind identifies a bracketed change.
type Kind int

const (
	// InsertRows announces rows First..Last appended under Parent.
	InsertRows Kind = iota + 1

	// Reorder announces a rebuild of a sorted view. Persistent handles are
	// remapped between BeginChange and EndChange.
	Reorder

	// ResetModel announces that every row is dropped. Indices held across
	// the bracket are stale.
	ResetModel
)

func (k Kind) String() string {
	switch k {
	case InsertRows:
		return "insert_rows"
	case Reorder:
		return "reorder"
	case ResetModel:
		return "reset_model"
	}
	return "unknown"
}

// Scope locates a bracketed change. For Reorder and ResetModel it is the zero value.
type Scope[I any] struct {
	Parent I
	First  int
	Last   int
}

// Observer receives change notifications for models addressed by index type I.
// Calls happen on the goroutine that mutates the model.
type Observer[I any] interface {
	BeginChange(kind Kind, scope Scope[I])
	EndChange(kind Kind, scope Scope[I])
	DataChanged(topLeft, bottomRight I)
}

// Nop is an Observer that ignores every notification.
type Nop[I any] struct{}

func (Nop[I]) BeginChange(Kind, Scope[I]) {}
func (Nop[I]) EndChange(Kind, Scope[I])   {}
func (Nop[I]) DataChanged(I, I)           {}
