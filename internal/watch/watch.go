// Package watch waits for content to appear on the feed server.
package watch

import (
	"context"
	"fmt"
	"time"

	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
)

// PollInterval is how often PollForSolution asks Redis.
var PollInterval = 200 * time.Millisecond

// PollForSolution polls until the solution with the given id is stored.
// Returns the solution or an error if timeout occurs.
func PollForSolution(ctx context.Context, client *taskfeed.Client, id uint32, timeout time.Duration) (*taskfeed.Solution, error) {
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	timeoutCh := time.After(timeout)

	for {
		s, err := client.GetSolution(ctx, id)
		if err == nil {
			return s, nil
		}
		if !taskfeed.IsNotFound(err) {
			return nil, fmt.Errorf("failed to query for solution %d: %w", id, err)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutCh:
			return nil, fmt.Errorf("timeout waiting for solution %d after %v", id, timeout)

		case <-ticker.C:
		}
	}
}
