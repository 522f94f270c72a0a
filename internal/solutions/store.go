// Package solutions keeps the ranked list of candidate solutions known for one
// stage and the sorted, filtered view a table observer displays.
//
// Records are stored in ascending id order. The view is rebuilt from scratch
// after every mutation that can change order or membership; observer-held
// Handles are remapped to the rows their records moved to.
package solutions

import (
	"log/slog"
	"math"
	"sort"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/notify"
)

// Column of the solution table.
type Column int

const (
	// ColumnNone disables sorting: the view keeps id (arrival) order.
	ColumnNone Column = -1
	// ColumnIndex shows the creation rank.
	ColumnIndex Column = 0
	// ColumnCost shows the cost; sorting uses the server's cost rank.
	ColumnCost Column = 1
	// ColumnName shows the solution name.
	ColumnName Column = 2
)

// ColumnCount is the fixed number of table columns.
const ColumnCount = 3

// Order is a sort direction.
type Order int

const (
	Ascending Order = iota
	Descending
)

// Record is one candidate solution.
type Record struct {
	ID   uint32
	Cost float64 // NaN = still running/unknown, +Inf = failed
	Name string

	// CreationRank is the 1-based position at which the id was first stored.
	CreationRank uint32
	// CostRank is the 1-based position in the most recent server listing.
	CostRank uint32
}

// Failed reports whether the record's cost marks a failure.
func (r *Record) Failed() bool {
	return math.IsInf(r.Cost, 1)
}

// Store holds all solutions of one stage.
type Store struct {
	data   []*Record // ascending by ID
	sorted []*Record // visible records in display order

	maxCost    float64
	sortColumn Column
	sortOrder  Order

	handles  []*Handle
	observer notify.Observer[Cell]
	logger   *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithMaxCost sets the visibility ceiling. +Inf means unbounded.
func WithMaxCost(c float64) Option {
	return func(s *Store) {
		s.maxCost = c
	}
}

// WithSort sets the initial sort column and order.
func WithSort(column Column, order Order) Option {
	return func(s *Store) {
		s.sortColumn = column
		s.sortOrder = order
	}
}

// WithObserver attaches a table observer.
func WithObserver(o notify.Observer[Cell]) Option {
	return func(s *Store) {
		s.observer = o
	}
}

// WithLogger sets the logger used for protocol anomalies.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// New creates an empty store with an unbounded cost ceiling and no sorting.
func New(opts ...Option) *Store {
	s := &Store{
		maxCost:    math.Inf(1),
		sortColumn: ColumnNone,
		sortOrder:  Ascending,
		observer:   notify.Nop[Cell]{},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SetObserver replaces the table observer. nil detaches it.
func (s *Store) SetObserver(o notify.Observer[Cell]) {
	if o == nil {
		o = notify.Nop[Cell]{}
	}
	s.observer = o
}

// IsVisible applies the cost ceiling: unknown costs are always shown, finite
// costs only below the ceiling, failures only when the ceiling is unbounded.
func (s *Store) IsVisible(r *Record) bool {
	return math.IsNaN(r.Cost) || r.Cost < s.maxCost || math.IsInf(s.maxCost, 1)
}

// MaxCost returns the visibility ceiling.
func (s *Store) MaxCost() float64 {
	return s.maxCost
}

// SetMaxCost changes the visibility ceiling and rebuilds the view.
func (s *Store) SetMaxCost(c float64) {
	if c == s.maxCost {
		return
	}
	s.maxCost = c
	s.sortInternal()
}

// Len returns the number of records, visible or not.
func (s *Store) Len() int {
	return len(s.data)
}

// Record returns a copy of the record with the given id.
func (s *Store) Record(id uint32) (Record, bool) {
	r := s.find(id)
	if r == nil {
		return Record{}, false
	}
	return *r, true
}

// NumSucceeded returns the number of visible records that did not fail.
func (s *Store) NumSucceeded() int {
	n := 0
	for _, r := range s.sorted {
		if !r.Failed() {
			n++
		}
	}
	return n
}

// NumFailed returns the number of visible failed records.
func (s *Store) NumFailed() int {
	n := 0
	for _, r := range s.sorted {
		if r.Failed() {
			n++
		}
	}
	return n
}

// ProcessSolutionIDs merges one server listing into the store. ids are ordered
// by cost, best first; each id's position becomes its cost rank. New ids are
// appended in ascending id order with the next creation rank and defaultCost;
// known ids only get their cost rank updated.
//
// Returns true iff a record's visibility flipped. The view is rebuilt either way.
func (s *Store) ProcessSolutionIDs(ids []uint32, defaultCost float64) bool {
	type ranked struct {
		id   uint32
		rank uint32
	}
	byID := make([]ranked, len(ids))
	for i, id := range ids {
		byID[i] = ranked{id: id, rank: uint32(i + 1)}
	}
	sort.SliceStable(byID, func(i, j int) bool { return byID[i].id < byID[j].id })

	changed := false
	for _, p := range byID {
		if len(s.data) == 0 || p.id > s.data[len(s.data)-1].ID {
			r := &Record{ID: p.id, Cost: defaultCost, CreationRank: uint32(len(s.data) + 1), CostRank: p.rank}
			s.data = append(s.data, r)
			changed = changed || s.IsVisible(r)
			continue
		}

		r := s.find(p.id)
		if r == nil {
			// Ids are expected to grow monotonically; keep the ascending order anyway.
			s.logger.Warn("solution id arrived out of order",
				"solution_id", p.id,
				"last_id", s.data[len(s.data)-1].ID)
			r = &Record{ID: p.id, Cost: defaultCost, CreationRank: uint32(len(s.data) + 1), CostRank: p.rank}
			s.insert(r)
			changed = changed || s.IsVisible(r)
			continue
		}

		wasVisible := s.IsVisible(r)
		r.CostRank = p.rank
		changed = changed || s.IsVisible(r) != wasVisible
	}

	s.sortInternal()
	return changed
}

// SetData pushes detail for a known solution. An empty name leaves the stored
// name untouched. Only the changed cells of a visible row are reported; hidden
// rows change silently. The view is rebuilt when the record's visibility
// flips or the active sort key changed.
func (s *Store) SetData(id uint32, cost float64, name string) {
	r := s.find(id)
	if r == nil {
		return
	}

	wasVisible := s.IsVisible(r)
	first, last := -1, -1

	if !sameCost(r.Cost, cost) {
		r.Cost = cost
		first, last = int(ColumnCost), int(ColumnCost)
	}
	nameChanged := name != "" && r.Name != name
	if nameChanged {
		r.Name = name
		last = int(ColumnName)
		if first < 0 {
			first = last
		}
	}
	if first < 0 {
		return
	}

	if s.IsVisible(r) != wasVisible || (nameChanged && s.sortColumn == ColumnName) {
		s.sortInternal()
	}

	if row := s.rowOf(id); row >= 0 {
		s.observer.DataChanged(Cell{Row: row, Column: first}, Cell{Row: row, Column: last})
	}
}

// find locates a record by binary search over the id-ordered data.
func (s *Store) find(id uint32) *Record {
	i := sort.Search(len(s.data), func(i int) bool { return s.data[i].ID >= id })
	if i < len(s.data) && s.data[i].ID == id {
		return s.data[i]
	}
	return nil
}

func (s *Store) insert(r *Record) {
	i := sort.Search(len(s.data), func(i int) bool { return s.data[i].ID >= r.ID })
	s.data = append(s.data, nil)
	copy(s.data[i+1:], s.data[i:])
	s.data[i] = r
}

// rowOf returns the display row of id, or -1 when hidden or unknown.
func (s *Store) rowOf(id uint32) int {
	for row, r := range s.sorted {
		if r.ID == id {
			return row
		}
	}
	return -1
}

func sameCost(a, b float64) bool {
	if math.IsNaN(a) || math.IsNaN(b) {
		return math.IsNaN(a) && math.IsNaN(b)
	}
	return a == b
}
