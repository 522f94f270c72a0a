package solutions

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"strings"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/notify"
)

// Cell addresses one value of the solution table. Row -1 is invalid.
type Cell struct {
	Row    int
	Column int
}

// InvalidCell is returned for positions outside the view.
var InvalidCell = Cell{Row: -1, Column: -1}

// Valid reports whether the cell points into some view.
func (c Cell) Valid() bool {
	return c.Row >= 0 && c.Column >= 0
}

func (c Cell) String() string {
	return fmt.Sprintf("(%d,%d)", c.Row, c.Column)
}

// Handle is a persistent position held by an observer. It follows its record
// across rebuilds of the view and becomes invalid when the record is hidden.
type Handle struct {
	cell Cell
}

// Cell returns the current position of the handle.
func (h *Handle) Cell() Cell {
	return h.cell
}

// Valid reports whether the handle still points at a visible record.
func (h *Handle) Valid() bool {
	return h.cell.Valid()
}

// Persist registers a persistent handle for cell. A cell outside the view
// yields an already invalid handle.
func (s *Store) Persist(cell Cell) *Handle {
	h := &Handle{cell: InvalidCell}
	if s.inView(cell) {
		h.cell = cell
	}
	s.handles = append(s.handles, h)
	return h
}

// Release stops tracking h.
func (s *Store) Release(h *Handle) {
	if i := slices.Index(s.handles, h); i >= 0 {
		s.handles = slices.Delete(s.handles, i, i+1)
	}
}

// RowCount returns the number of visible records.
func (s *Store) RowCount() int {
	return len(s.sorted)
}

// ColumnCount returns the fixed number of columns.
func (s *Store) ColumnCount() int {
	return ColumnCount
}

// Header returns the title of a column.
func (s *Store) Header(column Column) string {
	switch column {
	case ColumnIndex:
		return "#"
	case ColumnCost:
		return "cost"
	case ColumnName:
		return "name"
	}
	return ""
}

// ID returns the solution id displayed in row.
func (s *Store) ID(row int) (uint32, bool) {
	if row < 0 || row >= len(s.sorted) {
		return 0, false
	}
	return s.sorted[row].ID, true
}

// Row returns the display row of a solution id, or -1 when hidden or unknown.
func (s *Store) Row(id uint32) int {
	return s.rowOf(id)
}

// Data returns the value of cell for role, or nil outside the view.
// The cost column renders failures as "∞" and unknown costs as nil.
func (s *Store) Data(cell Cell, role notify.Role) any {
	if !s.inView(cell) {
		return nil
	}
	r := s.sorted[cell.Row]

	switch role {
	case notify.RoleID:
		return r.ID

	case notify.RoleDisplay:
		switch Column(cell.Column) {
		case ColumnIndex:
			return r.CreationRank
		case ColumnCost:
			if math.IsInf(r.Cost, 1) {
				return "∞"
			}
			if math.IsNaN(r.Cost) {
				return nil
			}
			return r.Cost
		case ColumnName:
			return r.Name
		}

	case notify.RoleForeground:
		if r.Failed() {
			return notify.ColorRed
		}
		return notify.ColorDefault
	}
	return nil
}

// SortColumn returns the active sort column and order.
func (s *Store) SortColumn() (Column, Order) {
	return s.sortColumn, s.sortOrder
}

// Sort orders the view by column. Ties are always broken by ascending
// creation rank. Sorting by the current column and order is a no-op.
func (s *Store) Sort(column Column, order Order) {
	if s.sortColumn == column && s.sortOrder == order {
		return
	}
	s.sortColumn = column
	s.sortOrder = order
	s.sortInternal()
}

func (s *Store) inView(c Cell) bool {
	return c.Row >= 0 && c.Row < len(s.sorted) && c.Column >= 0 && c.Column < ColumnCount
}

// sortInternal rebuilds the view from all records and remaps handles, bracketed
// by a Reorder notification.
func (s *Store) sortInternal() {
	s.observer.BeginChange(notify.Reorder, notify.Scope[Cell]{})

	old := s.sorted
	s.sorted = make([]*Record, 0, len(s.data))
	for _, r := range s.data {
		if s.IsVisible(r) {
			s.sorted = append(s.sorted, r)
		}
	}

	if s.sortColumn != ColumnNone {
		sort.SliceStable(s.sorted, func(i, j int) bool {
			return s.less(s.sorted[i], s.sorted[j])
		})
	}

	s.remapHandles(old)

	s.observer.EndChange(notify.Reorder, notify.Scope[Cell]{})
}

func (s *Store) less(a, b *Record) bool {
	comp := 0
	switch s.sortColumn {
	case ColumnIndex:
		comp = compareRank(a.CreationRank, b.CreationRank)
	case ColumnCost:
		comp = compareRank(a.CostRank, b.CostRank)
	case ColumnName:
		comp = strings.Compare(a.Name, b.Name)
	}
	if comp == 0 {
		return a.CreationRank < b.CreationRank
	}
	if s.sortOrder == Descending {
		return comp > 0
	}
	return comp < 0
}

func compareRank(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// remapHandles moves every valid handle to the new row of the record its old
// row showed. Handles sharing an old row are resolved once.
func (s *Store) remapHandles(old []*Record) {
	if len(s.handles) == 0 {
		return
	}

	newRow := make(map[*Record]int, len(s.sorted))
	for row, r := range s.sorted {
		newRow[r] = row
	}

	oldToNew := make(map[int]int)
	for _, h := range s.handles {
		if !h.Valid() {
			continue
		}
		row, seen := oldToNew[h.cell.Row]
		if !seen {
			row = -1
			if h.cell.Row < len(old) {
				if r, ok := newRow[old[h.cell.Row]]; ok {
					row = r
				}
			}
			oldToNew[h.cell.Row] = row
		}
		if row < 0 {
			h.cell = InvalidCell
		} else {
			h.cell.Row = row
		}
	}
}
