package taskfeed

import (
	"encoding/json"
	"fmt"
)

// Serialization helpers for the JSON payloads carried on the feed channels
// and stored under solution keys.

// Update is one message received from the feed subscription.
// Exactly one of Description, Statistics or Solution is set.
type Update struct {
	Channel     string           `json:"channel"`
	Description *TaskDescription `json:"description,omitempty"`
	Statistics  *TaskStatistics  `json:"statistics,omitempty"`
	Solution    *Solution        `json:"solution,omitempty"`
}

// Kind names the feed the update came from.
func (u *Update) Kind() string {
	switch {
	case u.Description != nil:
		return "description"
	case u.Statistics != nil:
		return "statistics"
	case u.Solution != nil:
		return "solution"
	}
	return "unknown"
}

// EncodeSolution converts a Solution to its stored JSON form.
func EncodeSolution(s *Solution) ([]byte, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal solution: %w", err)
	}
	return data, nil
}

// DecodeSolution parses a stored or published solution.
func DecodeSolution(data []byte) (*Solution, error) {
	var s Solution
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal solution: %w", err)
	}
	return &s, nil
}

// decodeUpdate maps a Pub/Sub payload to an Update by the channel it arrived on.
func decodeUpdate(namespace, channel, payload string) (*Update, error) {
	u := &Update{Channel: channel}

	switch channel {
	case DescriptionEventsChannel(namespace):
		var d TaskDescription
		if err := json.Unmarshal([]byte(payload), &d); err != nil {
			return nil, fmt.Errorf("failed to unmarshal description event: %w", err)
		}
		u.Description = &d

	case StatisticsEventsChannel(namespace):
		var s TaskStatistics
		if err := json.Unmarshal([]byte(payload), &s); err != nil {
			return nil, fmt.Errorf("failed to unmarshal statistics event: %w", err)
		}
		u.Statistics = &s

	case SolutionEventsChannel(namespace):
		s, err := DecodeSolution([]byte(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal solution event: %w", err)
		}
		u.Solution = s

	default:
		return nil, fmt.Errorf("unexpected channel %q", channel)
	}

	return u, nil
}
