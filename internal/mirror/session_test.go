package mirror

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/materialize"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/notify"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/tasktree"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// setupTestSession creates a session connected to miniredis with its own registry.
func setupTestSession(t *testing.T, opts ...Option) (*Session, *taskfeed.Client, *Metrics) {
	mr := miniredis.RunT(t)

	client, err := taskfeed.NewClient(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	metrics := NewMetrics(prometheus.NewRegistry())
	opts = append([]Option{WithLogger(quiet), WithMetrics(metrics)}, opts...)
	return NewSession(client, opts...), client, metrics
}

func description(taskID string, stages ...taskfeed.StageDescription) *taskfeed.Update {
	return &taskfeed.Update{Description: &taskfeed.TaskDescription{TaskID: taskID, Stages: stages}}
}

func pickPlace() []taskfeed.StageDescription {
	return []taskfeed.StageDescription{
		{ID: 1, ParentID: 0, Name: "pick_place"},
		{ID: 2, ParentID: 1, Name: "pick"},
	}
}

func TestSessionRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session, client, metrics := setupTestSession(t)
	assert.NotEmpty(t, session.ID)

	done := make(chan error, 1)
	go func() { done <- session.Run(ctx) }()

	select {
	case <-session.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for subscription")
	}

	require.NoError(t, client.PublishDescription(ctx, &taskfeed.TaskDescription{TaskID: "t", Stages: pickPlace()}))
	require.NoError(t, client.PublishStatistics(ctx, &taskfeed.TaskStatistics{
		TaskID: "t",
		Stages: []taskfeed.StageStatistics{{ID: 1, Solved: []uint32{7}}},
	}))
	require.NoError(t, client.PublishSolution(ctx, &taskfeed.Solution{
		TaskID:      "t",
		SubSolution: []taskfeed.SubSolution{{StageID: 1, ID: 7, Cost: 4}},
	}))

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(metrics.UpdatesTotal.WithLabelValues("solution")) == 1
	}, 2*time.Second, 10*time.Millisecond)

	var (
		stages int
		name   any
		cost   float64
		cached int
	)
	require.NoError(t, session.Do(ctx, func(m *tasktree.Model, c *materialize.Cache) {
		stages = m.Len()
		name = m.Data(m.Index(0, 0, tasktree.Index{}), notify.RoleDisplay)
		r, _ := m.SolutionStoreByID(1).Record(7)
		cost = r.Cost
		cached = c.Len()
	}))

	assert.Equal(t, 2, stages)
	assert.Equal(t, "pick_place", name)
	assert.Equal(t, 4.0, cost)
	assert.Equal(t, 1, cached)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpdatesTotal.WithLabelValues("description")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpdatesTotal.WithLabelValues("statistics")))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.Stages))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CachedSolutions))

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("session did not stop")
	}

	err := session.Do(context.Background(), func(*tasktree.Model, *materialize.Cache) {})
	assert.ErrorIs(t, err, ErrStopped)
}

func TestSessionApply(t *testing.T) {
	t.Run("stage errors are counted per entry", func(t *testing.T) {
		session, _, metrics := setupTestSession(t)

		session.apply(description("t",
			taskfeed.StageDescription{ID: 5, ParentID: 4, Name: "orphan"},
			taskfeed.StageDescription{ID: 6, ParentID: 4, Name: "orphan"},
		))
		session.apply(&taskfeed.Update{Statistics: &taskfeed.TaskStatistics{
			Stages: []taskfeed.StageStatistics{{ID: 9}},
		}})

		assert.Equal(t, 2.0, testutil.ToFloat64(metrics.StageErrorsTotal.WithLabelValues("description")))
		assert.Equal(t, 1.0, testutil.ToFloat64(metrics.StageErrorsTotal.WithLabelValues("statistics")))
	})

	t.Run("a new task id resets the mirror", func(t *testing.T) {
		session, _, metrics := setupTestSession(t)

		session.apply(description("first", pickPlace()...))
		session.apply(&taskfeed.Update{Solution: &taskfeed.Solution{
			SubSolution: []taskfeed.SubSolution{{StageID: 1, ID: 3, Cost: 1}},
		}})
		require.Equal(t, 2, session.model.Len())
		require.Equal(t, 1, session.cache.Len())

		session.apply(description("second", taskfeed.StageDescription{ID: 1, ParentID: 0, Name: "other"}))

		assert.Equal(t, 1, session.model.Len())
		assert.Equal(t, 0, session.cache.Len())
		assert.Equal(t, 0.0, testutil.ToFloat64(metrics.CachedSolutions))
	})

	t.Run("same task id keeps the mirror", func(t *testing.T) {
		session, _, _ := setupTestSession(t)
		session.apply(description("first", pickPlace()...))
		session.apply(description("first", taskfeed.StageDescription{ID: 3, ParentID: 1, Name: "place"}))
		assert.Equal(t, 3, session.model.Len())
	})

	t.Run("hook runs after the update was applied", func(t *testing.T) {
		var seen int
		var session *Session
		session, _, _ = setupTestSession(t, WithUpdateHook(func(u *taskfeed.Update) {
			seen = session.model.Len()
		}))
		session.apply(description("t", pickPlace()...))
		assert.Equal(t, 2, seen)
	})
}

func TestSessionFetch(t *testing.T) {
	ctx := context.Background()
	session, client, metrics := setupTestSession(t, WithFetchTimeout(time.Second))
	session.apply(description("t", pickPlace()...))

	require.NoError(t, client.StoreSolution(ctx, 11, &taskfeed.Solution{
		SubSolution: []taskfeed.SubSolution{{StageID: 1, ID: 11, Cost: 2}},
	}))

	d, err := session.cache.GetSolutionByID(ctx, 11)
	require.NoError(t, err)
	assert.Equal(t, uint32(11), d.ID)

	_, err = session.cache.GetSolutionByID(ctx, 12)
	assert.True(t, taskfeed.IsNotFound(err))

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchesTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchesTotal.WithLabelValues("not_found")))
}

func TestSessionDispatchDrainsAfterErrorsClose(t *testing.T) {
	session, _, metrics := setupTestSession(t)

	updates := make(chan *taskfeed.Update, 4)
	errs := make(chan error)
	close(errs)

	updates <- description("t", pickPlace()...)
	updates <- &taskfeed.Update{Statistics: &taskfeed.TaskStatistics{
		Stages: []taskfeed.StageStatistics{{ID: 2, Solved: []uint32{4}}},
	}}
	updates <- &taskfeed.Update{Solution: &taskfeed.Solution{
		SubSolution: []taskfeed.SubSolution{{StageID: 1, ID: 9, Cost: 1}},
	}}
	close(updates)

	done := make(chan error, 1)
	go func() { done <- session.dispatch(context.Background(), updates, errs) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch did not return after the updates channel closed")
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpdatesTotal.WithLabelValues("description")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpdatesTotal.WithLabelValues("statistics")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.UpdatesTotal.WithLabelValues("solution")))
	assert.Equal(t, 1, session.model.SolutionStoreByID(2).Len())
}
