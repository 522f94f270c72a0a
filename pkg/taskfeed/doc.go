// Package taskfeed provides type-safe Go definitions and Redis schema patterns
// for the feeds a remote task planner publishes about one running task.
//
// # Overview
//
// A planner process decomposes a task into a hierarchy of stages and reports
// its progress as three independent feeds. A client mirrors that state locally
// by consuming the feeds in arrival order; nothing in a feed is authoritative on
// its own, and every message may be repeated.
//
// # Feeds
//
// Descriptions announce stages: their id, their parent's id, a display name and
// the interface flags describing which data-flow directions the stage reads or
// writes. An empty description batch means the remote task no longer exists.
//
// Statistics report, per stage, the ids of solutions computed so far. Solved ids
// are ordered best first; failed ids are listed separately.
//
// Solutions carry the full content of one top-level solution: the per-stage
// sub-solutions it is assembled from and the individually viewable
// sub-trajectories.
//
// # Usage Example
//
//	client, err := taskfeed.NewClient(&redis.Options{Addr: "localhost:6379"}, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	sub, err := client.Subscribe(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sub.Close()
//
//	for u := range sub.Updates() {
//		switch {
//		case u.Description != nil:
//			// apply stage descriptions
//		case u.Statistics != nil:
//			// apply stage statistics
//		case u.Solution != nil:
//			// materialize solution
//		}
//	}
//
// # Redis Schema
//
// All Redis keys follow the pattern: mtc:{namespace}:{entity}[:{id}]
//
// Solutions: mtc:{namespace}:solution:{solution_id}
//
// Pub/Sub channels: mtc:{namespace}:{feed}_events
//
// Description Events: mtc:{namespace}:description_events
// Statistics Events: mtc:{namespace}:statistics_events
// Solution Events: mtc:{namespace}:solution_events
//
// All three channels are consumed through a single subscription so that the
// relative publish order across feeds is preserved for the consumer.
package taskfeed
