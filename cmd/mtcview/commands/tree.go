package commands

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/filter"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/materialize"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/report"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/tasktree"
	"github.com/spf13/cobra"
)

var (
	treeListen       time.Duration
	treeOutputFormat string
	treeMatch        string
	treeFailedOnly   bool
)

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the stage tree of the remote task",
	Long: `Mirror the task feeds for a listen window, then print the stage tree with
the number of successful and failed solutions of every stage.

The feeds are Pub/Sub channels without history: only descriptions and
statistics published during the window are seen. Planners republish their
description periodically, so a window of a few seconds is usually enough.

Examples:
  # Listen for 3 seconds (default) and print the tree
  mtcview tree

  # Listen longer and emit one JSON object per stage
  mtcview tree --listen 10s -o jsonl

  # Only stages named pick* that produced failures
  mtcview tree --match 'pick*' --failed`,
	Args: cobra.NoArgs,
	RunE: runTree,
}

func init() {
	treeCmd.Flags().DurationVar(&treeListen, "listen", 3*time.Second, "How long to mirror the feeds before printing")
	treeCmd.Flags().StringVarP(&treeOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	treeCmd.Flags().StringVar(&treeMatch, "match", "", "Only stages whose name matches this glob")
	treeCmd.Flags().BoolVar(&treeFailedOnly, "failed", false, "Only stages with failed solutions")
	rootCmd.AddCommand(treeCmd)
}

func runTree(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(treeOutputFormat); err != nil {
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

	criteria := &filter.Criteria{NameGlob: treeMatch, FailedOnly: treeFailedOnly}

	out := cmd.OutOrStdout()
	var writeErr error
	err = snapshot(ctx, newSession(cfg, client, logger), treeListen, func(m *tasktree.Model, _ *materialize.Cache) {
		rows := report.Tree(m)
		if criteria.HasFilters() {
			rows = criteria.Stages(rows)
		}
		if treeOutputFormat == "jsonl" {
			writeErr = report.FormatJSONL(out, rows)
			return
		}
		report.FormatStages(out, rows, cfg.Namespace, m.Destroyed())
	})
	if err != nil {
		return err
	}
	return writeErr
}
