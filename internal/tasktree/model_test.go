package tasktree

import (
	"io"
	"log/slog"
	"testing"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/notify"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/solutions"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestModel(t *testing.T, opts ...Option) (*Model, *notify.Recorder[Index]) {
	t.Helper()
	rec := &notify.Recorder[Index]{}
	opts = append([]Option{
		WithObserver(rec),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)
	return New(opts...), rec
}

func stage(id, parent uint32, name string) taskfeed.StageDescription {
	return taskfeed.StageDescription{ID: id, ParentID: parent, Name: name}
}

func TestIndexTraversal(t *testing.T) {
	m, _ := newTestModel(t)
	require.NoError(t, m.ApplyDescriptions([]taskfeed.StageDescription{
		stage(1, 0, "task"),
		stage(2, 1, "pick"),
		stage(3, 1, "place"),
	}))

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, 1, m.RowCount(Index{}))
	assert.Equal(t, 3, m.ColumnCount())

	top := m.Index(0, 0, Index{})
	require.True(t, top.Valid())
	assert.Equal(t, 2, m.RowCount(top))
	assert.Equal(t, 0, m.RowCount(top.Sibling(ColumnSucceeded)), "only column 0 has children")

	place := m.Index(1, 0, top)
	require.True(t, place.Valid())
	assert.Equal(t, "place", m.Data(place, notify.RoleDisplay))
	assert.Equal(t, uint32(3), m.Data(place, notify.RoleID))

	t.Run("parent is the inverse of index", func(t *testing.T) {
		parent := m.Parent(place)
		assert.Equal(t, top.Row(), parent.Row())
		id, ok := m.StageID(parent)
		require.True(t, ok)
		assert.Equal(t, uint32(1), id)

		assert.False(t, m.Parent(top).Valid(), "top-level rows have the root as parent")
	})

	t.Run("resolve by stage id", func(t *testing.T) {
		idx, ok := m.Resolve(3)
		require.True(t, ok)
		assert.Equal(t, 1, idx.Row())
		assert.Equal(t, 0, idx.Column())

		_, ok = m.Resolve(42)
		assert.False(t, ok)
	})

	t.Run("out of bounds positions are invalid", func(t *testing.T) {
		assert.False(t, m.Index(2, 0, top).Valid())
		assert.False(t, m.Index(-1, 0, top).Valid())
		assert.False(t, m.Index(0, ColumnCount, top).Valid())
		assert.Nil(t, m.Data(Index{}, notify.RoleDisplay))
	})

	t.Run("indices of another model are invalid", func(t *testing.T) {
		other, _ := newTestModel(t)
		require.NoError(t, other.ApplyDescriptions([]taskfeed.StageDescription{stage(1, 0, "other")}))
		foreign := other.Index(0, 0, Index{})

		assert.Nil(t, m.Data(foreign, notify.RoleDisplay))
		assert.Equal(t, 0, m.RowCount(foreign))
		assert.False(t, m.Index(0, 0, foreign).Valid())
		assert.False(t, m.Parent(foreign).Valid())
	})
}

func TestHeaderAndData(t *testing.T) {
	m, _ := newTestModel(t)
	assert.Equal(t, "name", m.Header(ColumnName))
	assert.Equal(t, "✓", m.Header(ColumnSucceeded))
	assert.Equal(t, "✗", m.Header(ColumnFailed))
	assert.Equal(t, "", m.Header(7))

	require.NoError(t, m.ApplyDescriptions([]taskfeed.StageDescription{stage(1, 0, "task")}))
	require.NoError(t, m.ApplyStatistics([]taskfeed.StageStatistics{
		{ID: 1, Solved: []uint32{1, 2}, Failed: []uint32{3}},
	}))

	idx := m.Index(0, 0, Index{})
	assert.Equal(t, "task", m.Data(idx, notify.RoleEdit))
	assert.Equal(t, 2, m.Data(idx.Sibling(ColumnSucceeded), notify.RoleDisplay))
	assert.Equal(t, 1, m.Data(idx.Sibling(ColumnFailed), notify.RoleDisplay))
	assert.Equal(t, notify.ColorDefault, m.Data(idx, notify.RoleForeground))
	assert.Nil(t, m.Data(idx.Sibling(ColumnFailed), notify.RoleForeground))
}

func TestSetName(t *testing.T) {
	m, rec := newTestModel(t)
	require.NoError(t, m.ApplyDescriptions([]taskfeed.StageDescription{stage(1, 0, "server")}))

	idx := m.Index(0, ColumnName, Index{})
	assert.True(t, m.Editable(idx))
	assert.False(t, m.Editable(idx.Sibling(ColumnSucceeded)))
	assert.False(t, m.SetName(idx.Sibling(ColumnSucceeded), "nope"))

	require.True(t, m.SetName(idx, "mine"))
	require.Len(t, rec.Data(), 1)
	assert.Equal(t, "mine", m.Data(idx, notify.RoleDisplay))

	t.Run("manual names survive server renames", func(t *testing.T) {
		rec.Reset()
		require.NoError(t, m.ApplyDescriptions([]taskfeed.StageDescription{stage(1, 0, "server v2")}))
		assert.Equal(t, "mine", m.Data(idx, notify.RoleDisplay))
		assert.Empty(t, rec.Events, "nothing changed")

		d := stage(1, 0, "server v3")
		d.Flags = taskfeed.ReadsStart
		require.NoError(t, m.ApplyDescriptions([]taskfeed.StageDescription{d}))
		assert.Equal(t, "mine", m.Data(idx, notify.RoleDisplay))
		assert.Len(t, rec.Data(), 1, "flag change is still reported")
	})
}

func TestSolutionStoreLookup(t *testing.T) {
	m, _ := newTestModel(t, WithSolutionOptions(solutions.WithMaxCost(5)))
	require.NoError(t, m.ApplyDescriptions([]taskfeed.StageDescription{stage(1, 0, "task")}))

	idx := m.Index(0, 0, Index{})
	store := m.SolutionStore(idx)
	require.NotNil(t, store)
	assert.Same(t, store, m.SolutionStoreByID(1))
	assert.Equal(t, 5.0, store.MaxCost())

	assert.NotNil(t, m.SolutionStore(Index{}), "the root has a store too")
	assert.Nil(t, m.SolutionStoreByID(9))
}

func TestReset(t *testing.T) {
	m, _ := newTestModel(t)
	require.NoError(t, m.ApplyDescriptions([]taskfeed.StageDescription{stage(1, 0, "task")}))
	require.NoError(t, m.ApplyDescriptions(nil))
	stale := m.Index(0, 0, Index{})
	require.True(t, m.Destroyed())

	m.Reset()

	assert.False(t, m.Destroyed())
	assert.Equal(t, 0, m.Len())
	assert.Equal(t, 0, m.RowCount(Index{}))
	assert.Nil(t, m.Data(stale, notify.RoleDisplay))
	assert.Nil(t, m.SolutionStoreByID(1))

	require.NoError(t, m.ApplyDescriptions([]taskfeed.StageDescription{stage(1, 0, "again")}))
	assert.Nil(t, m.Data(stale, notify.RoleDisplay), "stale indices stay stale")
	assert.Equal(t, "again", m.Data(m.Index(0, 0, Index{}), notify.RoleDisplay))
}

func TestResetNotifies(t *testing.T) {
	t.Run("visited root gets a bracket", func(t *testing.T) {
		m, rec := newTestModel(t)
		require.NoError(t, m.ApplyDescriptions([]taskfeed.StageDescription{
			stage(1, 0, "task"),
			stage(2, 1, "pick"),
		}))
		m.Index(0, 0, Index{})
		require.Equal(t, 1, m.RowCount(Index{}))
		rec.Reset()

		var rowsInside int
		m.SetObserver(&beginHook{Recorder: rec, begin: func() { rowsInside = m.RowCount(Index{}) }})
		m.Reset()

		assert.True(t, rec.Balanced())
		require.Len(t, rec.Events, 2)
		assert.Equal(t, notify.ResetModel, rec.Events[0].Kind)
		assert.Equal(t, notify.ResetModel, rec.Events[1].Kind)
		assert.Equal(t, 1, rowsInside, "rows are still there when the bracket opens")
		assert.Equal(t, 0, m.RowCount(Index{}))
	})

	t.Run("unvisited tree resets silently", func(t *testing.T) {
		m, rec := newTestModel(t)
		require.NoError(t, m.ApplyDescriptions([]taskfeed.StageDescription{stage(1, 0, "task")}))
		rec.Reset()

		m.Reset()
		assert.Empty(t, rec.Events)
	})

	t.Run("reset root starts unvisited", func(t *testing.T) {
		m, rec := newTestModel(t)
		require.NoError(t, m.ApplyDescriptions([]taskfeed.StageDescription{stage(1, 0, "task")}))
		m.Index(0, 0, Index{})
		m.Reset()
		require.Len(t, rec.Events, 2)
		rec.Reset()

		m.Reset()
		assert.Empty(t, rec.Events)
	})
}

// beginHook records like a Recorder and runs begin when a bracket opens.
type beginHook struct {
	*notify.Recorder[Index]
	begin func()
}

func (p *beginHook) BeginChange(kind notify.Kind, scope notify.Scope[Index]) {
	p.Recorder.BeginChange(kind, scope)
	p.begin()
}
