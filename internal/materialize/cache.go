package materialize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/notify"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/solutions"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/tasktree"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
)

var (
	// ErrNoFetcher is returned for cache misses when no fetcher is configured.
	ErrNoFetcher = errors.New("no solution fetcher configured")
	// ErrInvalidRow is returned when a table row does not resolve to a solution id.
	ErrInvalidRow = errors.New("row does not hold a solution")
)

// Fetcher requests the full content of a solution by id.
// taskfeed.Client implements it.
type Fetcher interface {
	FetchSolution(ctx context.Context, id uint32) (*taskfeed.Solution, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, id uint32) (*taskfeed.Solution, error)

func (f FetcherFunc) FetchSolution(ctx context.Context, id uint32) (*taskfeed.Solution, error) {
	return f(ctx, id)
}

// Cache memoizes display solutions by id and pushes solution details into the
// model's solution stores. Like the model, it is confined to one goroutine.
type Cache struct {
	model   *tasktree.Model
	fetcher Fetcher
	byID    map[uint32]*DisplaySolution
	logger  *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithFetcher sets the collaborator used on cache misses.
func WithFetcher(f Fetcher) Option {
	return func(c *Cache) {
		c.fetcher = f
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) {
		c.logger = l
	}
}

// New creates an empty cache feeding details into model.
func New(model *tasktree.Model, opts ...Option) *Cache {
	c := &Cache{
		model:  model,
		byID:   make(map[uint32]*DisplaySolution),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Len returns the number of cached display solutions.
func (c *Cache) Len() int {
	return len(c.byID)
}

// Cached returns the display solution cached under id.
func (c *Cache) Cached(id uint32) (*DisplaySolution, bool) {
	d, ok := c.byID[id]
	return d, ok
}

// Clear drops every cached solution. Used together with Model.Reset.
func (c *Cache) Clear() {
	clear(c.byID)
}

// OnSolutionMessage builds the display solution of msg. Top-level solutions
// are cached under their id, their sub-solution costs are pushed into the
// stages' stores, and every sub-trajectory with a nonzero id that is not yet
// cached gets a cached slice and its cost and name pushed into its stage.
// Other messages are returned without side effects.
func (c *Cache) OnSolutionMessage(msg *taskfeed.Solution) *DisplaySolution {
	d := NewDisplaySolution(msg)

	id, ok := msg.TopLevelID()
	if !ok {
		return d
	}
	c.byID[id] = d

	for _, sub := range msg.SubSolution {
		if store := c.model.SolutionStoreByID(sub.StageID); store != nil {
			store.SetData(sub.ID, sub.Cost.Float64(), "")
		}
	}

	for i, t := range msg.SubTrajectory {
		if t.ID == 0 {
			continue
		}
		if _, cached := c.byID[t.ID]; cached {
			continue
		}
		c.byID[t.ID] = d.Slice(i)
		if store := c.model.SolutionStoreByID(t.StageID); store != nil {
			store.SetData(t.ID, t.Cost.Float64(), t.Name)
		}
	}

	return d
}

// GetSolution returns the display solution shown in row of store.
func (c *Cache) GetSolution(ctx context.Context, store *solutions.Store, row int) (*DisplaySolution, error) {
	if store == nil {
		return nil, ErrInvalidRow
	}
	id, ok := store.Data(solutions.Cell{Row: row, Column: int(solutions.ColumnIndex)}, notify.RoleID).(uint32)
	if !ok {
		return nil, ErrInvalidRow
	}
	return c.GetSolutionByID(ctx, id)
}

// GetSolutionByID returns the cached display solution for id. On a miss the
// fetcher is asked once and a successful response is fed through
// OnSolutionMessage. No retries are made.
func (c *Cache) GetSolutionByID(ctx context.Context, id uint32) (*DisplaySolution, error) {
	if d, ok := c.byID[id]; ok {
		return d, nil
	}
	if c.fetcher == nil {
		return nil, ErrNoFetcher
	}

	msg, err := c.fetcher.FetchSolution(ctx, id)
	if err != nil {
		c.logger.Warn("failed to fetch solution", "solution_id", id, "error", err)
		return nil, fmt.Errorf("failed to fetch solution %d: %w", id, err)
	}
	return c.OnSolutionMessage(msg), nil
}
