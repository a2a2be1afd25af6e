package contract

import (
	"fmt"
	"runtime"
	"slices"
	"strings"
	"time"

	"github.com/huangsam/devpulse/schema"
)

// Default values for configuration.
const (
	DefaultStartDate      = "2025-08-19"
	DefaultPrecision      = 1
	DefaultMaxInflight    = 8
	DefaultRequestTimeout = 30 * time.Second
	DefaultCacheMaxAge    = 24 * time.Hour
	DefaultDaysBack       = 30
	DefaultLLMModel       = "gpt-4o-mini"
	DefaultLogLevel       = "warn"
	DefaultLogFormat      = "console"
	DefaultWeeklyLimit    = 50
	DefaultRawCommitLimit = 100
)

// DefaultRepositories are tracked when no repository is configured.
var DefaultRepositories = []string{
	"AutobookNft/EGI",
	"AutobookNft/EGI-HUB",
	"AutobookNft/EGI-HUB-HOME-REACT",
	"AutobookNft/EGI-INFO",
	"AutobookNft/NATAN_LOC",
}

// DefaultWorkers is the default number of concurrent workers to use.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// ProfileConfig holds profiling settings.
type ProfileConfig struct {
	Enabled bool
	Prefix  string
}

// Config holds the runtime configuration.
// This struct is the "final, validated" config.
type Config struct {
	Provider     schema.Provider
	Repositories []string
	LocalRoot    string
	GitHubToken  string // Please use env var as this is plaintext

	StartTime  time.Time
	EndTime    time.Time
	TargetDate time.Time // zero means "today, else last active day"
	Location   *time.Location

	Workers        int
	MaxInflight    int
	RequestTimeout time.Duration

	UseCache       bool
	CacheMaxAge    time.Duration
	CacheBackend   schema.DatabaseBackend
	CacheDBConnect string // Please use env var as this is plaintext
	RedisAddr      string
	RedisPassword  string
	RedisDB        int

	StatsBackend   schema.DatabaseBackend
	StatsDBConnect string // Please use env var as this is plaintext

	Output     schema.OutputMode
	OutputFile string
	ExcelFile  string
	Precision  int
	Width      int // Terminal width override (0 = auto-detect)

	UseLLM       bool
	LLMModel     string
	OpenAIAPIKey string
	OpenAIURL    string

	LogLevel    string
	LogFormat   string
	MetricsAddr string

	DaysBack   int
	TargetRepo string
}

// ConfigRawInput holds the raw inputs from all sources (flags, env, config file).
// Viper unmarshals into this struct.
type ConfigRawInput struct {
	// --- Fields from rootCmd.PersistentFlags() ---
	Provider       string   `mapstructure:"provider"`
	Repos          []string `mapstructure:"repos"`
	LocalRoot      string   `mapstructure:"local-root"`
	GitHubToken    string   `mapstructure:"github-token"`
	Start          string   `mapstructure:"start"`
	End            string   `mapstructure:"end"`
	Workers        int      `mapstructure:"workers"`
	MaxInflight    int      `mapstructure:"max-inflight"`
	RequestTimeout string   `mapstructure:"request-timeout"`
	UseCache       string   `mapstructure:"use-cache"`
	CacheMaxAge    string   `mapstructure:"cache-max-age"`
	CacheBackend   string   `mapstructure:"cache-backend"`
	CacheDBConnect string   `mapstructure:"cache-db-connect"`
	RedisAddr      string   `mapstructure:"redis-addr"`
	RedisPassword  string   `mapstructure:"redis-password"`
	RedisDB        int      `mapstructure:"redis-db"`
	StatsBackend   string   `mapstructure:"stats-backend"`
	StatsDBConnect string   `mapstructure:"stats-db-connect"`
	Output         string   `mapstructure:"output"`
	OutputFile     string   `mapstructure:"output-file"`
	Precision      int      `mapstructure:"precision"`
	Width          int      `mapstructure:"width"`
	LogLevel       string   `mapstructure:"log-level"`
	LogFormat      string   `mapstructure:"log-format"`
	Timezone       string   `mapstructure:"timezone"`

	// --- Fields from reportCmd.Flags() and summaryCmd.Flags() ---
	ExcelFile   string `mapstructure:"excel-file"`
	Date        string `mapstructure:"date"`
	MetricsAddr string `mapstructure:"metrics-addr"`

	// --- Fields from categorizeCmd.Flags() ---
	LLM          string `mapstructure:"llm"`
	LLMModel     string `mapstructure:"llm-model"`
	OpenAIAPIKey string `mapstructure:"openai-api-key"`
	OpenAIURL    string `mapstructure:"openai-base-url"`

	// --- Fields from ingestCmd.Flags() ---
	DaysBack int    `mapstructure:"days-back"`
	Repo     string `mapstructure:"repo"`
}

// Clone returns a deep copy of the Config struct.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Repositories != nil {
		clone.Repositories = slices.Clone(c.Repositories)
	}
	return &clone
}

// CloneWithTimeWindow creates a copy of the Config and sets the new StartTime and EndTime.
func (c *Config) CloneWithTimeWindow(start time.Time, end time.Time) *Config {
	clone := c.Clone()
	clone.StartTime = start
	clone.EndTime = end
	return clone
}

// SummaryOptions returns the non-secret settings worth recording with a run.
func (c *Config) SummaryOptions() map[string]any {
	return map[string]any{
		"provider":     string(c.Provider),
		"repositories": slices.Clone(c.Repositories),
		"start":        c.StartTime.Format(schema.DateLayout),
		"end":          c.EndTime.Format(schema.DateLayout),
		"use_cache":    c.UseCache,
		"llm":          c.UseLLM,
	}
}

// ProcessAndValidate performs all parsing and validation on the raw inputs
// and updates the final Config struct. It never touches the network.
func ProcessAndValidate(cfg *Config, input *ConfigRawInput, now time.Time) error {
	if err := validateSimpleInputs(cfg, input); err != nil {
		return err
	}
	if err := processRepositories(cfg, input); err != nil {
		return err
	}
	if err := validateBackendConfigs(cfg, input); err != nil {
		return err
	}
	if err := processTimeRange(cfg, input, now); err != nil {
		return err
	}
	if err := processLLM(cfg, input); err != nil {
		return err
	}
	return nil
}

// ValidateSourceConfig checks the settings needed before any upstream call.
func ValidateSourceConfig(cfg *Config) error {
	if len(cfg.Repositories) == 0 {
		return ErrNoRepositories
	}
	switch cfg.Provider {
	case schema.GitHubProvider:
		if cfg.GitHubToken == "" {
			return ErrMissingToken
		}
	case schema.LocalProvider:
		if cfg.LocalRoot == "" {
			return fmt.Errorf("local-root is required when using the %s provider", cfg.Provider)
		}
	}
	return nil
}

// ValidateDatabaseConnectionString validates the format of database connection strings
// for MySQL and PostgreSQL backends.
func ValidateDatabaseConnectionString(backend schema.DatabaseBackend, connStr string) error {
	switch backend {
	case schema.SQLiteBackend, schema.NoneBackend, schema.RedisBackend:
		return nil
	case schema.MySQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "@tcp(") {
			return fmt.Errorf("MySQL connection string must contain '@tcp(' for host:port specification")
		}
		if !strings.Contains(connStr, "/") {
			return fmt.Errorf("MySQL connection string must contain '/' followed by database name")
		}
	case schema.PostgreSQLBackend:
		if connStr == "" {
			return fmt.Errorf("db-connect is required when using %s backend", backend)
		}
		if !strings.Contains(connStr, "host=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'host=' parameter")
		}
		if !strings.Contains(connStr, "dbname=") {
			return fmt.Errorf("PostgreSQL connection string must contain 'dbname=' parameter")
		}
	}
	return nil
}

func validateSimpleInputs(cfg *Config, input *ConfigRawInput) error {
	cfg.Provider = schema.Provider(strings.ToLower(strings.TrimSpace(input.Provider)))
	if cfg.Provider == "" {
		cfg.Provider = schema.GitHubProvider
	}
	if _, ok := schema.ValidProviders[cfg.Provider]; !ok {
		return fmt.Errorf("invalid provider '%s'. must be github or local", input.Provider)
	}
	cfg.GitHubToken = strings.TrimSpace(input.GitHubToken)
	cfg.LocalRoot = input.LocalRoot

	cfg.Workers = input.Workers
	if cfg.Workers <= 0 {
		return fmt.Errorf("workers must be greater than 0 (received %d)", input.Workers)
	}
	cfg.MaxInflight = input.MaxInflight
	if cfg.MaxInflight <= 0 {
		return fmt.Errorf("max-inflight must be greater than 0 (received %d)", input.MaxInflight)
	}

	timeout, err := ParseMaxAge(input.RequestTimeout)
	if err != nil {
		return fmt.Errorf("invalid request-timeout: %w", err)
	}
	cfg.RequestTimeout = timeout

	cfg.UseCache = true
	if input.UseCache != "" {
		useCache, err := ParseBoolString(input.UseCache)
		if err != nil {
			return fmt.Errorf("invalid use-cache value: %w", err)
		}
		cfg.UseCache = useCache
	}
	maxAge, err := ParseMaxAge(input.CacheMaxAge)
	if err != nil {
		return fmt.Errorf("invalid cache-max-age: %w", err)
	}
	cfg.CacheMaxAge = maxAge

	cfg.Output = schema.OutputMode(strings.ToLower(input.Output))
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'. must be text, csv, json or parquet", input.Output)
	}
	cfg.OutputFile = input.OutputFile
	if cfg.Output == schema.ParquetOut && cfg.OutputFile == "" {
		return fmt.Errorf("parquet output requires --output-file")
	}

	cfg.Precision = input.Precision
	if cfg.Precision < 1 || cfg.Precision > 2 {
		return fmt.Errorf("precision must be 1 or 2 (received %d)", input.Precision)
	}
	if input.Width < 0 {
		return fmt.Errorf("width cannot be negative (received %d)", input.Width)
	}
	cfg.Width = input.Width

	cfg.LogLevel = strings.ToLower(input.LogLevel)
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level '%s'. must be debug, info, warn or error", input.LogLevel)
	}
	cfg.LogFormat = strings.ToLower(input.LogFormat)
	if cfg.LogFormat != "json" && cfg.LogFormat != "console" {
		return fmt.Errorf("invalid log format '%s'. must be json or console", input.LogFormat)
	}

	cfg.ExcelFile = input.ExcelFile
	cfg.MetricsAddr = input.MetricsAddr
	cfg.DaysBack = input.DaysBack
	if cfg.DaysBack <= 0 {
		return fmt.Errorf("days-back must be greater than 0 (received %d)", input.DaysBack)
	}
	cfg.TargetRepo = strings.TrimSpace(input.Repo)
	return nil
}

// processRepositories normalizes the repository list, dropping blanks and duplicates.
func processRepositories(cfg *Config, input *ConfigRawInput) error {
	var repos []string
	seen := make(map[string]struct{})
	for _, raw := range input.Repos {
		for part := range strings.SplitSeq(raw, ",") {
			repo := strings.Trim(strings.TrimSpace(part), "/")
			if repo == "" {
				continue
			}
			if _, dup := seen[repo]; dup {
				continue
			}
			if cfg.Provider == schema.GitHubProvider && strings.Count(repo, "/") != 1 {
				return fmt.Errorf("repository '%s' must look like owner/name", repo)
			}
			seen[repo] = struct{}{}
			repos = append(repos, repo)
		}
	}
	cfg.Repositories = repos

	if cfg.TargetRepo != "" {
		if !slices.Contains(cfg.Repositories, cfg.TargetRepo) {
			return fmt.Errorf("repo '%s' is not among the configured repositories", cfg.TargetRepo)
		}
	}
	return nil
}

// validateBackendConfigs validates cache and stats backend configurations.
func validateBackendConfigs(cfg *Config, input *ConfigRawInput) error {
	// --- Cache Backend Validation ---
	cfg.CacheBackend = schema.DatabaseBackend(strings.ToLower(input.CacheBackend))
	if _, ok := schema.ValidCacheBackends[cfg.CacheBackend]; !ok {
		return fmt.Errorf("invalid cache backend '%s'. must be sqlite, mysql, postgresql, redis, none", input.CacheBackend)
	}
	cfg.CacheDBConnect = input.CacheDBConnect
	if err := ValidateDatabaseConnectionString(cfg.CacheBackend, cfg.CacheDBConnect); err != nil {
		return err
	}
	cfg.RedisAddr = input.RedisAddr
	cfg.RedisPassword = input.RedisPassword
	cfg.RedisDB = input.RedisDB
	if cfg.CacheBackend == schema.RedisBackend && cfg.RedisAddr == "" {
		return fmt.Errorf("redis-addr is required when using redis backend")
	}

	// --- Stats Backend Validation ---
	cfg.StatsBackend = schema.DatabaseBackend(strings.ToLower(input.StatsBackend))
	if _, ok := schema.ValidStatsBackends[cfg.StatsBackend]; !ok {
		return fmt.Errorf("invalid stats backend '%s'. must be sqlite, mysql, postgresql, none", input.StatsBackend)
	}
	cfg.StatsDBConnect = input.StatsDBConnect
	if err := ValidateDatabaseConnectionString(cfg.StatsBackend, cfg.StatsDBConnect); err != nil {
		return err
	}

	// Both stores default to separate SQLite files, so only a shared custom path conflicts.
	if cfg.CacheBackend == schema.SQLiteBackend && cfg.StatsBackend == schema.SQLiteBackend &&
		cfg.CacheDBConnect != "" && cfg.CacheDBConnect == cfg.StatsDBConnect {
		return fmt.Errorf("cache and stats stores cannot share the SQLite file %s", cfg.CacheDBConnect)
	}
	return nil
}

// processTimeRange resolves the report window and the optional target date.
func processTimeRange(cfg *Config, input *ConfigRawInput, now time.Time) error {
	loc := time.Local
	if input.Timezone != "" {
		l, err := time.LoadLocation(input.Timezone)
		if err != nil {
			return fmt.Errorf("invalid timezone '%s': %w", input.Timezone, err)
		}
		loc = l
	}
	cfg.Location = loc
	now = now.In(loc)

	start := input.Start
	if start == "" {
		start = DefaultStartDate
	}
	t, err := ParseDate(start, now)
	if err != nil {
		return fmt.Errorf("invalid start date '%s': %w", start, err)
	}
	cfg.StartTime = t

	cfg.EndTime = schema.TruncateDay(now)
	if input.End != "" {
		t, err := ParseDate(input.End, now)
		if err != nil {
			return fmt.Errorf("invalid end date '%s': %w", input.End, err)
		}
		cfg.EndTime = t
	}

	if cfg.StartTime.After(cfg.EndTime) {
		return fmt.Errorf("start date (%s) cannot be after end date (%s)",
			cfg.StartTime.Format(schema.DateLayout), cfg.EndTime.Format(schema.DateLayout))
	}

	cfg.TargetDate = time.Time{}
	if input.Date != "" {
		t, err := ParseDate(input.Date, now)
		if err != nil {
			return fmt.Errorf("invalid date '%s': %w", input.Date, err)
		}
		cfg.TargetDate = t
	}
	return nil
}

// processLLM enables the external classifier only when it can actually run.
func processLLM(cfg *Config, input *ConfigRawInput) error {
	cfg.LLMModel = input.LLMModel
	if cfg.LLMModel == "" {
		cfg.LLMModel = DefaultLLMModel
	}
	cfg.OpenAIAPIKey = strings.TrimSpace(input.OpenAIAPIKey)
	cfg.OpenAIURL = input.OpenAIURL

	cfg.UseLLM = false
	if input.LLM == "" {
		return nil
	}
	useLLM, err := ParseBoolString(input.LLM)
	if err != nil {
		return fmt.Errorf("invalid llm value: %w", err)
	}
	if useLLM && cfg.OpenAIAPIKey == "" {
		return fmt.Errorf("llm requires openai-api-key (or OPENAI_API_KEY)")
	}
	cfg.UseLLM = useLLM
	return nil
}

// ProcessProfilingConfig handles the profiling flag and sets up profiling configuration.
func ProcessProfilingConfig(profile *ProfileConfig, profilePrefix string) error {
	if profilePrefix != "" {
		profile.Enabled = true
		profile.Prefix = profilePrefix
	}
	return nil
}
