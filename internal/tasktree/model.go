// Package tasktree mirrors the stage hierarchy of a remote task and keeps one
// solutions.Store per stage.
//
// Nodes live in an arena owned by the Model; parent and child links are arena
// handles. Views traverse the tree through Index values, which mark the nodes
// they reach as visited. Only visited nodes produce change notifications.
//
// A Model is not safe for concurrent use: all calls must come from one
// dispatch goroutine.
package tasktree

import (
	"fmt"
	"log/slog"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/notify"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/solutions"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
)

// Tree columns.
const (
	ColumnName      = 0
	ColumnSucceeded = 1
	ColumnFailed    = 2

	ColumnCount = 3
)

// Index is a position in the tree: a row within a parent node. The zero Index
// is invalid and stands for the root.
type Index struct {
	row    int
	column int
	parent handle
	model  *Model
	gen    uint64
}

// Valid reports whether the index points at a node below the root.
func (i Index) Valid() bool {
	return i.model != nil
}

// Row returns the row within the parent, or -1 for the invalid index.
func (i Index) Row() int {
	if !i.Valid() {
		return -1
	}
	return i.row
}

// Column returns the column, or -1 for the invalid index.
func (i Index) Column() int {
	if !i.Valid() {
		return -1
	}
	return i.column
}

// Sibling returns the index of column in the same row.
func (i Index) Sibling(column int) Index {
	if !i.Valid() {
		return Index{}
	}
	i.column = column
	return i
}

func (i Index) String() string {
	if !i.Valid() {
		return "root"
	}
	return fmt.Sprintf("(%d,%d)@%d", i.row, i.column, i.parent)
}

// Model is the client-side mirror of a remote task tree.
type Model struct {
	nodes     []node
	registry  *registry
	destroyed bool
	gen       uint64

	observer  notify.Observer[Index]
	logger    *slog.Logger
	storeOpts []solutions.Option
}

// Option configures a Model.
type Option func(*Model)

// WithObserver attaches a tree observer.
func WithObserver(o notify.Observer[Index]) Option {
	return func(m *Model) {
		m.observer = o
	}
}

// WithLogger sets the logger for feed errors.
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// WithSolutionOptions sets the options every stage's solution store is created with.
func WithSolutionOptions(opts ...solutions.Option) Option {
	return func(m *Model) {
		m.storeOpts = opts
	}
}

// New creates a model holding only the root (stage id 0).
func New(opts ...Option) *Model {
	m := &Model{
		observer: notify.Nop[Index]{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.storeOpts = append(m.storeOpts, solutions.WithLogger(m.logger))
	m.Reset()
	return m
}

// SetObserver replaces the tree observer. nil detaches it.
func (m *Model) SetObserver(o notify.Observer[Index]) {
	if o == nil {
		o = notify.Nop[Index]{}
	}
	m.observer = o
}

// Reset tears the whole tree down. Indices issued before become stale.
// Observers that traversed the root get a ResetModel bracket around it.
func (m *Model) Reset() {
	announce := len(m.nodes) > 0 && m.nodes[rootHandle].visited()
	if announce {
		m.observer.BeginChange(notify.ResetModel, notify.Scope[Index]{})
		defer m.observer.EndChange(notify.ResetModel, notify.Scope[Index]{})
	}

	m.nodes = m.nodes[:0]
	m.registry = newRegistry()
	m.destroyed = false
	m.gen++
	m.newNode(taskfeed.RootStageID, noHandle)
}

// Destroyed reports whether the remote task announced an empty stage list.
func (m *Model) Destroyed() bool {
	return m.destroyed
}

// Len returns the number of stages, excluding the root.
func (m *Model) Len() int {
	return len(m.nodes) - 1
}

func (m *Model) createIndex(row, column int, parent handle) Index {
	return Index{row: row, column: column, parent: parent, model: m, gen: m.gen}
}

// RowCount returns the number of children below parent.
func (m *Model) RowCount(parent Index) int {
	if parent.Column() > 0 {
		return 0
	}
	h := m.node(parent)
	if h == noHandle {
		return 0
	}
	return len(m.nodes[h].children)
}

// ColumnCount returns the fixed number of tree columns.
func (m *Model) ColumnCount() int {
	return ColumnCount
}

// Header returns the title of a tree column.
func (m *Model) Header(column int) string {
	switch column {
	case ColumnName:
		return "name"
	case ColumnSucceeded:
		return "✓"
	case ColumnFailed:
		return "✗"
	}
	return ""
}

// Index returns the position of row/column below parent, or the invalid index
// when out of bounds. Reaching a node this way marks it and its parent visited.
func (m *Model) Index(row, column int, parent Index) Index {
	if column < 0 || column >= ColumnCount {
		return Index{}
	}
	p := m.node(parent)
	if p == noHandle || row < 0 || row >= len(m.nodes[p].children) {
		return Index{}
	}

	m.nodes[p].state |= wasVisited
	m.nodes[m.nodes[p].children[row]].state |= wasVisited
	return m.createIndex(row, column, p)
}

// Parent returns the index of child's parent; top-level nodes return the
// invalid (root) index.
func (m *Model) Parent(child Index) Index {
	if !child.Valid() || child.model != m || child.gen != m.gen {
		return Index{}
	}
	if int(child.parent) >= len(m.nodes) {
		return Index{}
	}
	return m.indexOf(child.parent)
}

// Resolve returns the index of a stage id.
func (m *Model) Resolve(stageID uint32) (Index, bool) {
	h, ok := m.registry.lookup(stageID)
	if !ok {
		return Index{}, false
	}
	return m.indexOf(h), true
}

// StageID returns the stage id at idx.
func (m *Model) StageID(idx Index) (uint32, bool) {
	h := m.node(idx)
	if h == noHandle {
		return 0, false
	}
	return m.nodes[h].stageID, true
}

// Flags returns the interface flags of the stage at idx.
func (m *Model) Flags(idx Index) taskfeed.InterfaceFlags {
	h := m.node(idx)
	if h == noHandle {
		return 0
	}
	return m.nodes[h].flags
}

// Data returns the value of idx for role, or nil for invalid positions.
func (m *Model) Data(idx Index, role notify.Role) any {
	if !idx.Valid() {
		return nil
	}
	h := m.node(idx)
	if h == noHandle {
		return nil
	}
	n := &m.nodes[h]

	switch role {
	case notify.RoleDisplay, notify.RoleEdit:
		switch idx.column {
		case ColumnName:
			return n.name
		case ColumnSucceeded:
			return n.solutions.NumSucceeded()
		case ColumnFailed:
			return n.solutions.NumFailed()
		}

	case notify.RoleForeground:
		if idx.column == ColumnName && idx.parent == rootHandle {
			if m.destroyed {
				return notify.ColorRed
			}
			return notify.ColorDefault
		}

	case notify.RoleID:
		return n.stageID
	}
	return nil
}

// Editable reports whether the cell at idx accepts SetName.
func (m *Model) Editable(idx Index) bool {
	return idx.Valid() && idx.column == ColumnName && m.node(idx) != noHandle
}

// SetName renames the stage at idx on behalf of an observer. The name becomes
// sticky: later server-supplied names for this stage are ignored.
func (m *Model) SetName(idx Index, name string) bool {
	if !m.Editable(idx) {
		return false
	}
	n := &m.nodes[m.node(idx)]
	n.name = name
	n.state |= nameChanged
	m.observer.DataChanged(idx, idx)
	return true
}

// SolutionStore returns the solution store of the stage at idx.
// The invalid index yields the root's store.
func (m *Model) SolutionStore(idx Index) *solutions.Store {
	h := m.node(idx)
	if h == noHandle {
		return nil
	}
	return m.nodes[h].solutions
}

// SolutionStoreByID returns the solution store of a stage id, or nil.
func (m *Model) SolutionStoreByID(stageID uint32) *solutions.Store {
	h, ok := m.registry.lookup(stageID)
	if !ok {
		return nil
	}
	return m.nodes[h].solutions
}
