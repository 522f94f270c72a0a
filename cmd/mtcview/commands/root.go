package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/config"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/logging"
	"github.com/VideoSystemsTech/moveit-task-constructor/internal/printer"
	"github.com/VideoSystemsTech/moveit-task-constructor/pkg/taskfeed"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	version string
	commit  string
	date    string

	configPath        string
	namespaceOverride string
	redisURLOverride  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "mtcview",
	Short: "mtcview - mirror of a remote planning task",
	Long: `mtcview mirrors the stage tree and solutions of a remote planning task
from its Redis feeds.

A planner publishes stage descriptions, solution statistics and full
solutions on three Pub/Sub channels of a namespace; mtcview keeps a live
tree of stages with a ranked solution list per stage, and fetches full
solutions on demand.`,
	Version: version,
	// Prevent silent success when unknown flags are passed to root command
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
	FParseErrWhitelist: cobra.FParseErrWhitelist{},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	// Silence Cobra's default error and usage printing
	// We print formatted colored errors directly in the printer package
	rootCmd.SilenceErrors = true
	rootCmd.SilenceUsage = true
	return rootCmd.Execute()
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = fmt.Sprintf("%s (commit: %s, built: %s)", v, c, d)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath, "Path to the configuration file")
	rootCmd.PersistentFlags().StringVarP(&namespaceOverride, "namespace", "n", "", "Feed namespace (overrides config and MTCVIEW_NAMESPACE)")
	rootCmd.PersistentFlags().StringVar(&redisURLOverride, "redis-url", "", "Redis URL (overrides config and MTCVIEW_REDIS_URL)")
}

// loadConfig resolves the configuration and applies command-line overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Resolve(configPath)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"Invalid configuration",
			err.Error(),
			map[string]string{"Config": configPath},
			[]string{"Fix the file, or remove it to run with defaults"},
		)
	}
	if namespaceOverride != "" {
		cfg.Namespace = namespaceOverride
	}
	if redisURLOverride != "" {
		cfg.Redis.URL = redisURLOverride
	}
	return cfg, nil
}

// newLogger builds the process logger. Logs go to stderr so that command
// output on stdout stays machine-readable.
func newLogger(cfg *config.Config) *slog.Logger {
	logger := logging.New(cfg.Logging, os.Stderr)
	slog.SetDefault(logger)
	return logger
}

// connect opens the feed client and verifies Redis connectivity.
func connect(ctx context.Context, cfg *config.Config) (*taskfeed.Client, error) {
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, printer.ErrorWithContext(
			"Invalid Redis URL",
			err.Error(),
			map[string]string{"Redis": cfg.Redis.URL},
			[]string{"Use the form redis://host:port/db"},
		)
	}

	client, err := taskfeed.NewClient(redisOpts, cfg.Namespace)
	if err != nil {
		return nil, fmt.Errorf("failed to create feed client: %w", err)
	}

	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, printer.RedisUnreachable(cfg.Redis.URL, err)
	}
	return client, nil
}

// validateOutputFormat accepts the formats every listing command supports.
func validateOutputFormat(format string) error {
	switch format {
	case "default", "jsonl":
		return nil
	}
	return printer.Error(
		"invalid output format",
		fmt.Sprintf("Unknown format: %s", format),
		[]string{"Valid formats: default, jsonl"},
	)
}
