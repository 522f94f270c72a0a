package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/config"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/materialize"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/mirror"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/tasktree"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
)

// newSession builds a mirror session whose stores start with the configured
// cost ceiling and sort order.
func newSession(cfg *config.Config, client *taskfeed.Client, logger *slog.Logger, opts ...mirror.Option) *mirror.Session {
	model := tasktree.New(
		tasktree.WithLogger(logger),
		tasktree.WithSolutionOptions(cfg.SolutionOptions()...),
	)
	opts = append([]mirror.Option{
		mirror.WithLogger(logger),
		mirror.WithModel(model),
		mirror.WithFetchTimeout(cfg.Fetch.Timeout),
	}, opts...)
	return mirror.NewSession(client, opts...)
}

// snapshot mirrors the feeds for the listen window, then runs fn against the
// mirrored state. Pub/Sub keeps no history, so only messages published
// during the window are seen.
func snapshot(ctx context.Context, session *mirror.Session, listen time.Duration, fn func(*tasktree.Model, *materialize.Cache)) error {
	// The session outlives an interrupt during the window so that the
	// snapshot is still taken.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- session.Run(runCtx) }()

	select {
	case <-session.Ready():
	case err := <-done:
		if err == nil {
			err = mirror.ErrStopped
		}
		return fmt.Errorf("mirror session ended before subscribing: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-time.After(listen):
	case <-ctx.Done():
	}

	if err := session.Do(runCtx, fn); err != nil {
		return err
	}

	cancel()
	return <-done
}
