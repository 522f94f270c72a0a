package tasktree

import (
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/notify"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/solutions"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
)

// handle addresses a node in the model's arena.
type handle int32

const (
	rootHandle handle = 0
	noHandle   handle = -1
)

type nodeState uint8

const (
	wasVisited  nodeState = 0x01 // an observer traversed to this node; emit notifications
	nameChanged nodeState = 0x02 // name was edited by an observer; ignore server names
)

type node struct {
	stageID   uint32
	parent    handle
	children  []handle
	name      string
	flags     taskfeed.InterfaceFlags
	state     nodeState
	solutions *solutions.Store
}

func (n *node) visited() bool {
	return n.state&wasVisited != 0
}

// registry maps stage ids to arena handles. It is the single source of truth
// for whether a stage exists.
type registry struct {
	byID map[uint32]handle
}

func newRegistry() *registry {
	return &registry{byID: map[uint32]handle{taskfeed.RootStageID: rootHandle}}
}

func (r *registry) lookup(stageID uint32) (handle, bool) {
	h, ok := r.byID[stageID]
	return h, ok
}

func (r *registry) register(stageID uint32, h handle) {
	r.byID[stageID] = h
}

func (m *Model) newNode(stageID uint32, parent handle) handle {
	m.nodes = append(m.nodes, node{
		stageID:   stageID,
		parent:    parent,
		solutions: solutions.New(m.storeOpts...),
	})
	return handle(len(m.nodes) - 1)
}

// createChild appends a node for stageID under parent and registers it.
// The insertion is announced only if the parent was ever visited: nobody can
// hold a position inside a parent that was never traversed.
func (m *Model) createChild(parent handle, stageID uint32) handle {
	announce := m.nodes[parent].visited()
	row := len(m.nodes[parent].children)

	var scope notify.Scope[Index]
	if announce {
		scope = notify.Scope[Index]{Parent: m.indexOf(parent), First: row, Last: row}
		m.observer.BeginChange(notify.InsertRows, scope)
	}

	h := m.newNode(stageID, parent)
	m.nodes[parent].children = append(m.nodes[parent].children, h)
	m.registry.register(stageID, h)

	if announce {
		m.observer.EndChange(notify.InsertRows, scope)
	}
	return h
}

// indexOf returns the column-0 index of h. The root maps to the invalid index.
// The parent's children are scanned linearly.
func (m *Model) indexOf(h handle) Index {
	if h == rootHandle || h == noHandle {
		return Index{}
	}
	parent := m.nodes[h].parent
	for row, c := range m.nodes[parent].children {
		if c == h {
			return m.createIndex(row, 0, parent)
		}
	}
	return Index{}
}

// node resolves idx to an arena handle. The invalid index is the root.
// Indices of another model or an older generation resolve to noHandle.
func (m *Model) node(idx Index) handle {
	if !idx.Valid() {
		return rootHandle
	}
	if idx.model != m || idx.gen != m.gen {
		m.logger.Debug("index does not belong to this model")
		return noHandle
	}
	if int(idx.parent) < 0 || int(idx.parent) >= len(m.nodes) {
		return noHandle
	}
	children := m.nodes[idx.parent].children
	if idx.row < 0 || idx.row >= len(children) {
		return noHandle
	}
	return children[idx.row]
}
