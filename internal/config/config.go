package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/VideoSystemsTech/moveit-task-constructor/internal/solutions"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for its configuration.
const DefaultPath = "mtcview.yml"

// Environment variables overriding the file.
const (
	EnvRedisURL  = "MTCVIEW_REDIS_URL"
	EnvNamespace = "MTCVIEW_NAMESPACE"
)

// RedisConfig specifies how to reach the feed server
type RedisConfig struct {
	URL string `yaml:"url"`
}

// SolutionsConfig specifies the initial state of every stage's solution table
type SolutionsConfig struct {
	MaxCost    *float64 `yaml:"max_cost,omitempty"`    // Cost ceiling (omitted or .inf = unbounded)
	SortColumn string   `yaml:"sort_column,omitempty"` // none, index, cost or name
	SortOrder  string   `yaml:"sort_order,omitempty"`  // ascending or descending
}

// FetchConfig bounds on-demand solution fetches
type FetchConfig struct {
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// LoggingConfig selects the log level and encoding
type LoggingConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug, info, warn or error
	Format string `yaml:"format,omitempty"` // json or text
}

// MetricsConfig enables the /metrics and /healthz endpoint
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty"` // e.g. ":9090"; empty disables the endpoint
}

// Config represents the top-level mtcview.yml configuration
type Config struct {
	Version   string          `yaml:"version"`
	Redis     RedisConfig     `yaml:"redis"`
	Namespace string          `yaml:"namespace"`
	Solutions SolutionsConfig `yaml:"solutions"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	c := &Config{Version: "1.0"}
	if err := c.Validate(); err != nil {
		panic(err)
	}
	return c
}

// Validate applies defaults and performs strict validation on the configuration
func (c *Config) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Redis.URL == "" {
		c.Redis.URL = "redis://localhost:6379/0"
	}
	if c.Namespace == "" {
		c.Namespace = "default"
	}

	if c.Solutions.MaxCost == nil {
		unbounded := math.Inf(1)
		c.Solutions.MaxCost = &unbounded
	}
	if math.IsNaN(*c.Solutions.MaxCost) {
		return fmt.Errorf("solutions.max_cost must be a number or .inf")
	}
	if c.Solutions.SortColumn == "" {
		c.Solutions.SortColumn = "none"
	}
	if _, err := ParseSortColumn(c.Solutions.SortColumn); err != nil {
		return err
	}
	if c.Solutions.SortOrder == "" {
		c.Solutions.SortOrder = "ascending"
	}
	if _, err := ParseSortOrder(c.Solutions.SortOrder); err != nil {
		return err
	}

	if c.Fetch.Timeout == 0 {
		c.Fetch.Timeout = 5 * time.Second
	}
	if c.Fetch.Timeout < 0 {
		return fmt.Errorf("fetch.timeout must be positive, got %s", c.Fetch.Timeout)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid logging.level: %s (must be 'debug', 'info', 'warn' or 'error')", c.Logging.Level)
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid logging.format: %s (must be 'json' or 'text')", c.Logging.Format)
	}

	return nil
}

// SolutionOptions translates the solutions section into store options.
func (c *Config) SolutionOptions() []solutions.Option {
	column, _ := ParseSortColumn(c.Solutions.SortColumn)
	order, _ := ParseSortOrder(c.Solutions.SortOrder)
	return []solutions.Option{
		solutions.WithMaxCost(*c.Solutions.MaxCost),
		solutions.WithSort(column, order),
	}
}

// ParseSortColumn maps a column name to the solution table column.
func ParseSortColumn(s string) (solutions.Column, error) {
	switch s {
	case "none":
		return solutions.ColumnNone, nil
	case "index":
		return solutions.ColumnIndex, nil
	case "cost":
		return solutions.ColumnCost, nil
	case "name":
		return solutions.ColumnName, nil
	}
	return solutions.ColumnNone, fmt.Errorf("invalid sort column: %s (must be 'none', 'index', 'cost' or 'name')", s)
}

// ParseSortOrder maps an order name to the sort direction.
func ParseSortOrder(s string) (solutions.Order, error) {
	switch s {
	case "ascending", "asc":
		return solutions.Ascending, nil
	case "descending", "desc":
		return solutions.Descending, nil
	}
	return solutions.Ascending, fmt.Errorf("invalid sort order: %s (must be 'ascending' or 'descending')", s)
}

// Load reads and validates mtcview.yml from the specified path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Resolve loads the optional .env file, then path if it exists (defaults
// otherwise), then applies environment overrides.
func Resolve(path string) (*Config, error) {
	// A missing .env is fine
	_ = godotenv.Load()

	var (
		cfg *Config
		err error
	)
	if _, statErr := os.Stat(path); statErr == nil {
		cfg, err = Load(path)
		if err != nil {
			return nil, err
		}
	} else if os.IsNotExist(statErr) && path == DefaultPath {
		cfg = Default()
	} else {
		return nil, fmt.Errorf("failed to read config: %w", statErr)
	}

	cfg.ApplyEnv()
	return cfg, nil
}

// ApplyEnv overrides the Redis URL and namespace from the environment.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvRedisURL); v != "" {
		c.Redis.URL = v
	}
	if v := os.Getenv(EnvNamespace); v != "" {
		c.Namespace = v
	}
}
