package taskfeed

import "fmt"

// Redis key pattern helpers
//
// All Redis keys and Pub/Sub channels are namespaced so that several remote
// tasks can be mirrored from a single Redis server.
//
// Key pattern: mtc:{namespace}:{entity}:{id}
// Channel pattern: mtc:{namespace}:{feed}_events

// SolutionKey returns the Redis key holding the full content of a solution.
// Pattern: mtc:{namespace}:solution:{solution_id}
func SolutionKey(namespace string, solutionID uint32) string {
	return fmt.Sprintf("mtc:%s:solution:%d", namespace, solutionID)
}

// DescriptionEventsChannel returns the Pub/Sub channel for stage descriptions.
// Pattern: mtc:{namespace}:description_events
func DescriptionEventsChannel(namespace string) string {
	return fmt.Sprintf("mtc:%s:description_events", namespace)
}

// StatisticsEventsChannel returns the Pub/Sub channel for stage statistics.
// Pattern: mtc:{namespace}:statistics_events
func StatisticsEventsChannel(namespace string) string {
	return fmt.Sprintf("mtc:%s:statistics_events", namespace)
}

// SolutionEventsChannel returns the Pub/Sub channel for pushed solutions.
// Pattern: mtc:{namespace}:solution_events
func SolutionEventsChannel(namespace string) string {
	return fmt.Sprintf("mtc:%s:solution_events", namespace)
}
