package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/mirror"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/printer"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/report"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var (
	watchOutputFormat string
	watchMetricsAddr  string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Mirror the task feeds and stream every update",
	Long: `Subscribe to the description, statistics and solution feeds of a namespace
and apply every message to a live mirror until interrupted.

Each received message is printed as a one-line summary (default) or as
the raw update in JSON (--output=jsonl).

If metrics.addr is configured (or --metrics-addr is given) the mirror also
serves /healthz and Prometheus /metrics on that address.

Examples:
  # Mirror the default namespace
  mtcview watch

  # Mirror another namespace and stream JSON
  mtcview watch -n cell-2 -o jsonl

  # Expose metrics while mirroring
  mtcview watch --metrics-addr :9090`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVarP(&watchOutputFormat, "output", "o", "default", "Output format: default or jsonl")
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve /healthz and /metrics on this address")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if err := validateOutputFormat(watchOutputFormat); err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if watchMetricsAddr != "" {
		cfg.Metrics.Addr = watchMetricsAddr
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer client.Close()

	out := cmd.OutOrStdout()
	hook := func(u *taskfeed.Update) {
		if watchOutputFormat == "jsonl" {
			if err := report.FormatJSONL(out, []*taskfeed.Update{u}); err != nil {
				logger.Error("failed to write update", "error", err)
			}
			return
		}
		report.FormatUpdate(out, u)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	session := newSession(cfg, client, logger,
		mirror.WithMetrics(mirror.NewMetrics(reg)),
		mirror.WithUpdateHook(hook))

	if cfg.Metrics.Addr != "" {
		health := mirror.NewHealthServer(client, reg, cfg.Metrics.Addr, logger)
		if err := health.Start(); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			health.Shutdown(shutdownCtx)
		}()
		logger.Info("serving health and metrics", "addr", cfg.Metrics.Addr)
	}

	if watchOutputFormat == "default" {
		printer.Info("Watching namespace '%s' (Ctrl+C to stop)\n", cfg.Namespace)
	}

	if err := session.Run(ctx); err != nil {
		return printer.Error(
			"mirror session failed",
			err.Error(),
			[]string{"Check that the feed server is still reachable"},
		)
	}
	return nil
}
