// Package mirror runs a mirror session: it subscribes to the task feeds of one
// namespace and applies every message, in arrival order, to a task tree and a
// solution cache owned by a single dispatch goroutine.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/materialize"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/tasktree"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

// ErrStopped is returned by Do once the session's Run loop has exited.
var ErrStopped = errors.New("mirror session stopped")

// Session owns the mirrored model and cache. All access from other goroutines
// goes through Do.
type Session struct {
	ID string

	client       *taskfeed.Client
	model        *tasktree.Model
	cache        *materialize.Cache
	metrics      *Metrics
	logger       *slog.Logger
	fetchTimeout time.Duration
	onUpdate     func(*taskfeed.Update)

	taskID  string
	calls   chan func()
	ready   chan struct{}
	stopped chan struct{}
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the base logger. Session records carry component and session attributes.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		s.logger = l
	}
}

// WithMetrics sets the metrics the session updates.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// WithFetchTimeout bounds each on-demand solution fetch. Zero disables the bound.
func WithFetchTimeout(d time.Duration) Option {
	return func(s *Session) {
		s.fetchTimeout = d
	}
}

// WithModel replaces the model the session mirrors into.
func WithModel(m *tasktree.Model) Option {
	return func(s *Session) {
		s.model = m
	}
}

// WithUpdateHook registers fn to run on the dispatch goroutine after each
// update was applied.
func WithUpdateHook(fn func(*taskfeed.Update)) Option {
	return func(s *Session) {
		s.onUpdate = fn
	}
}

// NewSession creates a session reading from client.
func NewSession(client *taskfeed.Client, opts ...Option) *Session {
	s := &Session{
		ID:           uuid.New().String(),
		client:       client,
		logger:       slog.Default(),
		fetchTimeout: 5 * time.Second,
		calls:        make(chan func()),
		ready:        make(chan struct{}),
		stopped:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.logger = s.logger.With("component", "mirror", "session", s.ID)
	if s.metrics == nil {
		s.metrics = NewMetrics(prometheus.NewRegistry())
	}
	if s.model == nil {
		s.model = tasktree.New(tasktree.WithLogger(s.logger))
	}
	s.cache = materialize.New(s.model,
		materialize.WithLogger(s.logger),
		materialize.WithFetcher(materialize.FetcherFunc(s.fetch)))
	return s
}

// Ready is closed once the feed subscription is confirmed.
func (s *Session) Ready() <-chan struct{} {
	return s.ready
}

// Run subscribes to the feeds and applies updates until ctx is cancelled or
// the subscription closes.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.stopped)

	s.logger.Info("starting mirror session", "namespace", s.client.Namespace())

	subscription, err := s.client.Subscribe(ctx)
	if err != nil {
		return fmt.Errorf("failed to subscribe to task feeds: %w", err)
	}
	defer subscription.Close()

	close(s.ready)
	s.logger.Info("subscribed to task feeds")

	return s.dispatch(ctx, subscription.Updates(), subscription.Errors())
}

// dispatch applies updates until ctx is cancelled or updates closes. The error
// channel may close first; buffered updates are still drained.
func (s *Session) dispatch(ctx context.Context, updates <-chan *taskfeed.Update, errs <-chan error) error {
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shutting down mirror session")
			return nil

		case u, ok := <-updates:
			if !ok {
				s.logger.Info("feed subscription closed")
				return nil
			}
			s.apply(u)

		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			s.metrics.DecodeErrorsTotal.Inc()
			s.logger.Warn("dropped feed message", "error", err)

		case call := <-s.calls:
			call()
		}
	}
}

// Do runs fn on the dispatch goroutine and waits for it to return.
func (s *Session) Do(ctx context.Context, fn func(*tasktree.Model, *materialize.Cache)) error {
	done := make(chan struct{})
	call := func() {
		defer close(done)
		fn(s.model, s.cache)
	}

	select {
	case s.calls <- call:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// apply hands one update to the model or cache.
// A description batch for another task resets the mirror first.
func (s *Session) apply(u *taskfeed.Update) {
	start := time.Now()
	feed := u.Kind()

	switch {
	case u.Description != nil:
		if id := u.Description.TaskID; id != "" && id != s.taskID {
			if s.taskID != "" {
				s.logger.Info("remote task changed, resetting mirror",
					"previous_task", s.taskID,
					"task", id)
				s.model.Reset()
				s.cache.Clear()
			}
			s.taskID = id
		}
		s.countStageErrors(feed, s.model.ApplyDescriptions(u.Description.Stages))

	case u.Statistics != nil:
		s.countStageErrors(feed, s.model.ApplyStatistics(u.Statistics.Stages))

	case u.Solution != nil:
		d := s.cache.OnSolutionMessage(u.Solution)
		if d.ID == 0 {
			s.logger.Debug("solution is not top-level, not cached")
		}
	}

	s.metrics.UpdatesTotal.WithLabelValues(feed).Inc()
	s.metrics.Stages.Set(float64(s.model.Len()))
	s.metrics.CachedSolutions.Set(float64(s.cache.Len()))

	s.logger.Debug("feed update applied",
		"feed", feed,
		"latency_ms", time.Since(start).Milliseconds())

	if s.onUpdate != nil {
		s.onUpdate(u)
	}
}

func (s *Session) countStageErrors(feed string, err error) {
	if err == nil {
		return
	}
	n := 1
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		n = len(joined.Unwrap())
	}
	s.metrics.StageErrorsTotal.WithLabelValues(feed).Add(float64(n))
}

// fetch is the cache's fetcher: a bounded round trip to Redis.
func (s *Session) fetch(ctx context.Context, id uint32) (*taskfeed.Solution, error) {
	if s.fetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.fetchTimeout)
		defer cancel()
	}

	msg, err := s.client.FetchSolution(ctx, id)
	switch {
	case err == nil:
		s.metrics.FetchesTotal.WithLabelValues("ok").Inc()
	case taskfeed.IsNotFound(err):
		s.metrics.FetchesTotal.WithLabelValues("not_found").Inc()
	default:
		s.metrics.FetchesTotal.WithLabelValues("error").Inc()
	}
	return msg, err
}
