package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/config"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/filter"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/materialize"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/notify"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/printer"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/report"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/tasktree"
	"github.com/spf13/cobra"
)

var (
	solutionsListen       time.Duration
	solutionsSortColumn   string
	solutionsSortOrder    string
	solutionsMaxCost      float64
	solutionsOutputFormat string
	solutionsMatch        string
	solutionsFailedOnly   bool
	solutionsMinCost      float64
)

var solutionsCmd = &cobra.Command{
	Use:   "solutions <stage-id>",
	Short: "Print the solution table of one stage",
	Long: `Mirror the task feeds for a listen window, then print the visible
solutions of one stage.

Solutions still being computed show no cost, failed solutions are printed
in red. The table starts with the cost ceiling and sort order from the
solutions section of mtcview.yml; the flags override them.

Examples:
  # Solutions of stage 4 in arrival order
  mtcview solutions 4

  # Cheapest first, hiding everything above cost 10
  mtcview solutions 4 --sort cost --max-cost 10

  # Most expensive first, as JSONL
  mtcview solutions 4 --sort cost --order desc -o jsonl

  # Only the failures
  mtcview solutions 4 --failed`,
	Args: cobra.ExactArgs(1),
	RunE: runSolutions,
}

func init() {
	solutionsCmd.Flags().DurationVar(&solutionsListen, "listen", 3*time.Second, "How long to mirror the feeds before printing")
	solutionsCmd.Flags().StringVar(&solutionsSortColumn, "sort", "", "Sort column: none, index, cost or name")
	solutionsCmd.Flags().StringVar(&solutionsSortOrder, "order", "", "Sort order: ascending or descending")
	solutionsCmd.Flags().Float64Var(&solutionsMaxCost, "max-cost", 0, "Hide solutions costing more than this")
	solutionsCmd.Flags().StringVarP(&solutionsOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	solutionsCmd.Flags().StringVar(&solutionsMatch, "match", "", "Only solutions whose name matches this glob")
	solutionsCmd.Flags().BoolVar(&solutionsFailedOnly, "failed", false, "Only failed solutions")
	solutionsCmd.Flags().Float64Var(&solutionsMinCost, "min-cost", 0, "Hide solutions cheaper than this")
	rootCmd.AddCommand(solutionsCmd)
}

func runSolutions(cmd *cobra.Command, args []string) error {
	stageID, err := parseID("stage", args[0])
	if err != nil {
		return err
	}
	if err := validateOutputFormat(solutionsOutputFormat); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if solutionsSortColumn != "" {
		cfg.Solutions.SortColumn = solutionsSortColumn
	}
	if solutionsSortOrder != "" {
		cfg.Solutions.SortOrder = solutionsSortOrder
	}
	if cmd.Flags().Changed("max-cost") {
		cfg.Solutions.MaxCost = &solutionsMaxCost
	}
	if _, err := config.ParseSortColumn(cfg.Solutions.SortColumn); err != nil {
		return printer.Error("invalid sort column", err.Error(), nil)
	}
	if _, err := config.ParseSortOrder(cfg.Solutions.SortOrder); err != nil {
		return printer.Error("invalid sort order", err.Error(), nil)
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	criteria := &filter.Criteria{NameGlob: solutionsMatch, FailedOnly: solutionsFailedOnly, MinCost: solutionsMinCost}

	out := cmd.OutOrStdout()
	var (
		found    bool
		writeErr error
	)
	err = snapshot(ctx, newSession(cfg, client, logger), solutionsListen, func(m *tasktree.Model, _ *materialize.Cache) {
		store := m.SolutionStoreByID(stageID)
		if store == nil {
			return
		}
		found = true

		rows := report.Solutions(store)
		if criteria.HasFilters() {
			rows = criteria.Solutions(rows)
		}
		if solutionsOutputFormat == "jsonl" {
			writeErr = report.FormatJSONL(out, rows)
			return
		}
		idx, _ := m.Resolve(stageID)
		name, _ := m.Data(idx, notify.RoleDisplay).(string)
		report.FormatSolutionRows(out, rows, name, store.Len())
	})
	if err != nil {
		return err
	}
	if !found {
		return printer.ErrorWithContext(
			"unknown stage",
			fmt.Sprintf("No stage with id %d was described during the listen window.", stageID),
			map[string]string{"Namespace": cfg.Namespace},
			[]string{
				"List the stages with: mtcview tree",
				"Listen longer with: --listen 10s",
			},
		)
	}
	return writeErr
}

// parseID parses a stage or solution id argument.
func parseID(what, arg string) (uint32, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, printer.Error(
			fmt.Sprintf("invalid %s id", what),
			fmt.Sprintf("'%s' is not a valid %s id.", arg, what),
			[]string{fmt.Sprintf("%s ids are unsigned 32-bit integers", what)},
		)
	}
	return uint32(id), nil
}
