package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/printer"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var publishInterval time.Duration

// Fixture is a scripted sequence of feed messages.
type Fixture struct {
	Events []FixtureEvent `yaml:"events"`
}

// FixtureEvent is one step of a fixture. Exactly one message field is set,
// or none when the step only pauses.
type FixtureEvent struct {
	Description *taskfeed.TaskDescription `yaml:"description,omitempty"`
	Statistics  *taskfeed.TaskStatistics  `yaml:"statistics,omitempty"`
	Solution    *taskfeed.Solution        `yaml:"solution,omitempty"`
	Store       bool                      `yaml:"store,omitempty"` // Also store the solution under its top-level id
	Sleep       time.Duration             `yaml:"sleep,omitempty"`
}

var publishCmd = &cobra.Command{
	Use:   "publish <fixture.yml>",
	Short: "Publish a scripted sequence of feed messages",
	Long: `Publish the description, statistics and solution messages of a YAML
fixture, in order, to the feeds of a namespace. Useful to drive a mirror
without a running planner.

Fixture format:
  events:
    - description:
        task_id: demo
        stages:
          - {id: 1, parent_id: 0, name: pick_place}
          - {id: 2, parent_id: 1, name: pick}
    - statistics:
        task_id: demo
        stages:
          - {id: 2, solved: [7], failed: [8]}
    - solution:
        task_id: demo
        sub_solution:
          - {stage_id: 1, id: 7, cost: 1.5}
      store: true          # also make it fetchable by id
    - sleep: 500ms
    - description: {task_id: demo, stages: []}   # task destroyed

Examples:
  # Publish a fixture to the default namespace
  mtcview publish demo.yml

  # Pace the messages
  mtcview publish demo.yml --interval 200ms`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().DurationVar(&publishInterval, "interval", 0, "Pause between messages")
	rootCmd.AddCommand(publishCmd)
}

// LoadFixture reads and checks a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture: %w", err)
	}

	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	for i, e := range f.Events {
		n := 0
		if e.Description != nil {
			n++
		}
		if e.Statistics != nil {
			n++
		}
		if e.Solution != nil {
			n++
		}
		if n > 1 {
			return nil, fmt.Errorf("event %d: only one of description, statistics or solution may be set", i)
		}
		if n == 0 && e.Sleep == 0 {
			return nil, fmt.Errorf("event %d: empty event", i)
		}
		if e.Store {
			if e.Solution == nil {
				return nil, fmt.Errorf("event %d: store requires a solution", i)
			}
			if _, ok := e.Solution.TopLevelID(); !ok {
				return nil, fmt.Errorf("event %d: only top-level solutions can be stored", i)
			}
		}
	}
	return &f, nil
}

func runPublish(cmd *cobra.Command, args []string) error {
	fixture, err := LoadFixture(args[0])
	if err != nil {
		return printer.ErrorWithContext(
			"invalid fixture",
			err.Error(),
			map[string]string{"Fixture": args[0]},
			[]string{"Run 'mtcview publish --help' for the fixture format"},
		)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	published := 0
	for i, e := range fixture.Events {
		if e.Sleep > 0 {
			if err := pause(ctx, e.Sleep); err != nil {
				return err
			}
		}
		if e.Description == nil && e.Statistics == nil && e.Solution == nil {
			continue
		}
		if published > 0 && publishInterval > 0 {
			if err := pause(ctx, publishInterval); err != nil {
				return err
			}
		}

		if err := publishEvent(ctx, client, e); err != nil {
			return printer.ErrorWithContext(
				"failed to publish event",
				err.Error(),
				map[string]string{"Event": fmt.Sprint(i), "Namespace": cfg.Namespace},
				nil,
			)
		}
		published++
	}

	printer.Success("Published %d messages to namespace '%s'\n", published, cfg.Namespace)
	return nil
}

func publishEvent(ctx context.Context, client *taskfeed.Client, e FixtureEvent) error {
	switch {
	case e.Description != nil:
		printer.Step("description: %d stages\n", len(e.Description.Stages))
		return client.PublishDescription(ctx, e.Description)

	case e.Statistics != nil:
		printer.Step("statistics: %d stages\n", len(e.Statistics.Stages))
		return client.PublishStatistics(ctx, e.Statistics)

	default:
		if e.Store {
			id, _ := e.Solution.TopLevelID()
			if err := client.StoreSolution(ctx, id, e.Solution); err != nil {
				return err
			}
		}
		printer.Step("solution: %d sub-trajectories\n", len(e.Solution.SubTrajectory))
		return client.PublishSolution(ctx, e.Solution)
	}
}

func pause(ctx context.Context, d time.Duration) error {
	select {
	case <-time.After(d):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
