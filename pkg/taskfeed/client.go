package taskfeed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Client provides namespace-scoped Redis operations for the task feeds.
// All keys and channels are automatically namespaced with the namespace.
// The client is thread-safe and can be used concurrently from multiple goroutines.
type Client struct {
	rdb       *redis.Client
	namespace string
}

// NewClient creates a new feed client for the specified namespace.
//
// Parameters:
//   - redisOpts: Redis connection options (address, password, DB, etc.)
//   - namespace: remote task namespace (must not be empty)
//
// Returns an error if namespace is empty.
func NewClient(redisOpts *redis.Options, namespace string) (*Client, error) {
	if namespace == "" {
		return nil, fmt.Errorf("namespace cannot be empty")
	}

	return &Client{
		rdb:       redis.NewClient(redisOpts),
		namespace: namespace,
	}, nil
}

// Namespace returns the namespace all keys and channels are scoped to.
func (c *Client) Namespace() string {
	return c.namespace
}

// Close closes the Redis connection. Implements io.Closer.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping verifies Redis connectivity.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

// PublishDescription validates a description batch and publishes it.
// An empty batch is published as-is: it tells consumers the task is gone.
func (c *Client) PublishDescription(ctx context.Context, d *TaskDescription) error {
	if err := d.Validate(); err != nil {
		return fmt.Errorf("invalid description: %w", err)
	}
	return c.publish(ctx, DescriptionEventsChannel(c.namespace), d)
}

// PublishStatistics validates a statistics batch and publishes it.
func (c *Client) PublishStatistics(ctx context.Context, s *TaskStatistics) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid statistics: %w", err)
	}
	return c.publish(ctx, StatisticsEventsChannel(c.namespace), s)
}

// PublishSolution validates a solution and publishes it on the solution feed.
func (c *Client) PublishSolution(ctx context.Context, s *Solution) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid solution: %w", err)
	}
	return c.publish(ctx, SolutionEventsChannel(c.namespace), s)
}

func (c *Client) publish(ctx context.Context, channel string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := c.rdb.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event on %s: %w", channel, err)
	}
	return nil
}

// StoreSolution writes the full content of a solution under the given id so
// that consumers can fetch it on demand.
func (c *Client) StoreSolution(ctx context.Context, id uint32, s *Solution) error {
	if id == 0 {
		return fmt.Errorf("solution id cannot be zero")
	}
	if err := s.Validate(); err != nil {
		return fmt.Errorf("invalid solution: %w", err)
	}

	data, err := EncodeSolution(s)
	if err != nil {
		return err
	}

	if err := c.rdb.Set(ctx, SolutionKey(c.namespace, id), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write solution to Redis: %w", err)
	}
	return nil
}

// GetSolution retrieves the full content of a solution by id.
// Returns (nil, redis.Nil) if the solution doesn't exist.
// Use IsNotFound() to check for not-found errors.
func (c *Client) GetSolution(ctx context.Context, id uint32) (*Solution, error) {
	data, err := c.rdb.Get(ctx, SolutionKey(c.namespace, id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("failed to read solution from Redis: %w", err)
	}

	s, err := DecodeSolution(data)
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize solution %d: %w", id, err)
	}
	return s, nil
}

// FetchSolution implements the on-demand fetch contract used by the solution
// cache. It is GetSolution under another name.
func (c *Client) FetchSolution(ctx context.Context, id uint32) (*Solution, error) {
	return c.GetSolution(ctx, id)
}

// Subscription represents an active Pub/Sub subscription to all three feeds.
// Caller must call Close() when done to clean up resources.
type Subscription struct {
	updates <-chan *Update
	errors  <-chan error
	cancel  func()
	once    sync.Once
}

// Updates returns the channel of decoded feed messages, in publish order.
// The channel will be closed when the subscription is closed or the context is cancelled.
func (s *Subscription) Updates() <-chan *Update {
	return s.updates
}

// Errors returns the channel of subscription errors.
// Errors include JSON unmarshaling failures; the offending message is skipped.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close stops the subscription and cleans up resources. Implements io.Closer.
// Safe to call multiple times - subsequent calls are no-ops.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe subscribes to the description, statistics and solution feeds of
// this namespace on a single connection, so the relative order of messages
// across feeds is preserved. The subscription is confirmed by Redis before
// Subscribe returns.
//
// Updates are delivered on a buffered channel (size 64). Redis Pub/Sub is
// at-most-once: a subscriber that falls behind may lose messages.
func (c *Client) Subscribe(ctx context.Context) (*Subscription, error) {
	pubsub := c.rdb.Subscribe(ctx,
		DescriptionEventsChannel(c.namespace),
		StatisticsEventsChannel(c.namespace),
		SolutionEventsChannel(c.namespace),
	)

	// Wait for confirmation so that nothing published after Subscribe returns is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to feed channels: %w", err)
	}

	updatesChan := make(chan *Update, 64)
	errorsChan := make(chan error, 10)

	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(updatesChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()

		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				u, err := decodeUpdate(c.namespace, msg.Channel, msg.Payload)
				if err != nil {
					select {
					case errorsChan <- err:
					case <-subCtx.Done():
						return
					}
					continue
				}

				select {
				case updatesChan <- u:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		updates: updatesChan,
		errors:  errorsChan,
		cancel:  cancelFunc,
	}, nil
}

// IsNotFound returns true if the error is a Redis "key not found" error (redis.Nil).
func IsNotFound(err error) bool {
	return errors.Is(err, redis.Nil)
}
