package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/materialize"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/printer"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/report"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/tasktree"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/watch"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
	"github.com/spf13/cobra"
)

var (
	solutionWait         time.Duration
	solutionStep         int
	solutionOutputFormat string
)

var solutionCmd = &cobra.Command{
	Use:   "solution <solution-id>",
	Short: "Fetch and print one full solution",
	Long: `Fetch a full solution from the feed server by id and print its
sub-trajectories in execution order.

Planners store full solutions on request only; use --wait to poll until
the solution appears.

Examples:
  # Print solution 42
  mtcview solution 42

  # Wait up to 10 seconds for the planner to store it
  mtcview solution 42 --wait 10s

  # Only the third sub-trajectory, as JSONL
  mtcview solution 42 --step 3 -o jsonl`,
	Args: cobra.ExactArgs(1),
	RunE: runSolution,
}

func init() {
	solutionCmd.Flags().DurationVar(&solutionWait, "wait", 0, "Poll for the solution for up to this long")
	solutionCmd.Flags().IntVar(&solutionStep, "step", 0, "Print only this sub-trajectory (1-based)")
	solutionCmd.Flags().StringVarP(&solutionOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	rootCmd.AddCommand(solutionCmd)
}

func runSolution(cmd *cobra.Command, args []string) error {
	id, err := parseID("solution", args[0])
	if err != nil {
		return err
	}
	if err := validateOutputFormat(solutionOutputFormat); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	fetch := func(ctx context.Context, id uint32) (*taskfeed.Solution, error) {
		if solutionWait > 0 {
			return watch.PollForSolution(ctx, client, id, solutionWait)
		}
		ctx, cancel := context.WithTimeout(ctx, cfg.Fetch.Timeout)
		defer cancel()
		return client.FetchSolution(ctx, id)
	}
	cache := materialize.New(tasktree.New(tasktree.WithLogger(logger)),
		materialize.WithLogger(logger),
		materialize.WithFetcher(materialize.FetcherFunc(fetch)))

	d, err := cache.GetSolutionByID(ctx, id)
	if err != nil {
		if taskfeed.IsNotFound(err) {
			return printer.ErrorWithContext(
				"solution not found",
				fmt.Sprintf("No solution with id %d is stored.", id),
				map[string]string{"Namespace": cfg.Namespace},
				[]string{"Wait for the planner to store it with: --wait 10s"},
			)
		}
		return printer.Error("failed to fetch solution", err.Error(), nil)
	}

	if solutionStep != 0 {
		slice := d.Slice(solutionStep - 1)
		if slice == nil {
			return printer.Error(
				"invalid step",
				fmt.Sprintf("Solution %d has %d sub-trajectories, step %d does not exist.", id, len(d.Steps()), solutionStep),
				nil,
			)
		}
		d = slice
	}

	out := cmd.OutOrStdout()
	if solutionOutputFormat == "jsonl" {
		return report.FormatJSONL(out, d.Steps())
	}
	report.FormatSolution(out, d)
	return nil
}
