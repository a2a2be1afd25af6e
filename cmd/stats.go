package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/internal/iocache"
	"github.com/huangsam/devpulse/internal/outwriter"
	"github.com/huangsam/devpulse/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// statsBackendFromConfig reads and validates the stats backend settings.
func statsBackendFromConfig() (schema.DatabaseBackend, string, error) {
	if err := loadConfigFile(); err != nil {
		return "", "", err
	}
	backend := schema.DatabaseBackend(strings.ToLower(viper.GetString("stats-backend")))
	if backend == "" {
		backend = schema.NoneBackend
	}
	if _, ok := schema.ValidStatsBackends[backend]; !ok {
		return "", "", fmt.Errorf("invalid stats backend '%s'. must be sqlite, mysql, postgresql, none", backend)
	}
	connStr := viper.GetString("stats-db-connect")
	if err := contract.ValidateDatabaseConnectionString(backend, connStr); err != nil {
		return "", "", err
	}
	return backend, connStr, nil
}

// statsSetup loads minimal configuration needed for stats operations.
// This is used by commands that need the stats store without full shared setup.
func statsSetup() error {
	backend, connStr, err := statsBackendFromConfig()
	if err != nil {
		return err
	}

	// Initialize stores with the loaded config (no commit cache for stats commands)
	if err := iocache.InitStores(rootCtx, "", "", iocache.RedisOptions{}, backend, connStr); err != nil {
		return fmt.Errorf("failed to initialize stats store: %w", err)
	}

	cfg.StatsBackend = backend
	cfg.StatsDBConnect = connStr
	cfg.Output = schema.OutputMode(strings.ToLower(viper.GetString("output")))
	cfg.OutputFile = viper.GetString("output-file")
	cfg.Precision = viper.GetInt("precision")
	cfg.Width = viper.GetInt("width")
	if _, ok := schema.ValidOutputModes[cfg.Output]; !ok {
		return fmt.Errorf("invalid output format '%s'", cfg.Output)
	}
	return nil
}

// statsSetupMinimalWrapper wraps statsSetup to provide PreRunE for stats commands.
func statsSetupMinimalWrapper(_ *cobra.Command, _ []string) error {
	return statsSetup()
}

// statsMigrateSetup loads minimal configuration needed for migrate operations.
// This is a specialized setup that does NOT initialize stores or create tables,
// allowing migrations to run on a fresh database.
func statsMigrateSetup(_ *cobra.Command, _ []string) error {
	backend, connStr, err := statsBackendFromConfig()
	if err != nil {
		return err
	}
	cfg.StatsBackend = backend
	cfg.StatsDBConnect = connStr
	return nil
}

// statsStore returns the open stats store or exits.
func statsStore() contract.StatsStore {
	store := iocache.Manager.GetStatsStore()
	if store == nil {
		contract.LogFatal("Stats store unavailable", fmt.Errorf("stats backend %s is not configured", cfg.StatsBackend))
	}
	return store
}

// statsCmd focused on the persisted analytics tables.
//
// Note: Stats subcommands use minimal initialization (statsSetup) instead of
// the full sharedSetup. This avoids token validation for simple database operations.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Manage and query the published productivity tables",
	Long: `Manage the stats store filled by 'devpulse ingest'.

The store holds three tables:
- commits      - every published commit with stats, tags and analysis
- daily_stats  - one row per day and repository
- weekly_stats - one row per ISO week and repository

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (disabled)

Subcommands:
  status  - Show row counts, date range and table sizes
  weekly  - Weekly scores summed across repositories
  daily   - Per-repository rows of one day
  commits - Most recent stored commits
  export  - Export all tables to Parquet
  reset   - Delete all rows
  migrate - Run database schema migrations

Examples:
  # Check what has been published
  devpulse stats status

  # Export for analysis in pandas/DuckDB
  devpulse stats export --output-file pulse`,
}

// statsResetCmd deletes every row.
var statsResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Remove all published commits and stats",
	Long: `Delete every row of the commits, daily_stats and weekly_stats tables.
The schema is kept.

WARNING: This action cannot be undone. Consider exporting data first.

Examples:
  devpulse stats export --output-file backup
  devpulse stats reset`,
	PreRunE: statsSetupMinimalWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := statsStore().Reset(rootCtx); err != nil {
			contract.LogFatal("Failed to reset stats", err)
		}
		fmt.Println("Stats reset successfully.")
	},
}

// statsStatusCmd shows stats store status.
var statsStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display stats store statistics and connection details",
	Long: `Show detailed information about the stats store.

Displays:
- Backend type and connection status
- Number of stored commits, daily rows and weekly rows
- First and last stored day
- Table sizes

Examples:
  devpulse stats status`,
	PreRunE: statsSetupMinimalWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		status, err := statsStore().GetStatus()
		if err != nil {
			contract.LogFatal("Failed to get stats status", err)
		}
		iocache.PrintStatsStatus(os.Stdout, status)
	},
}

// statsExportCmd exports the stats tables to Parquet files.
var statsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the stats tables to Parquet for BI tools and analytics",
	Long: `Export every stored table to Parquet.

Writes <output-file>.commits.parquet, <output-file>.daily_stats.parquet and
<output-file>.weekly_stats.parquet.

Requires: --output-file parameter

Examples:
  devpulse stats export --output-file pulse
  duckdb -c "SELECT * FROM read_parquet('pulse.daily_stats.parquet') LIMIT 10"`,
	PreRunE: statsSetupMinimalWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := iocache.ExportStats(rootCtx, statsStore(), cfg.OutputFile, os.Stdout); err != nil {
			contract.LogFatal("Failed to export stats", err)
		}
	},
}

// statsWeeklyCmd shows stored weekly summaries.
var statsWeeklyCmd = &cobra.Command{
	Use:   "weekly",
	Short: "Show weekly scores summed across repositories, newest first",
	Long: `Group the weekly_stats rows by ISO year and week.

Examples:
  devpulse stats weekly --limit 10
  devpulse stats weekly --output json`,
	PreRunE: statsSetupMinimalWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		weeks, err := statsStore().WeeklySummaries(rootCtx, limit)
		if err != nil {
			contract.LogFatal("Failed to load weekly stats", err)
		}
		if err := outwriter.NewOutWriter(os.Stdout, cfg).WriteWeeklySummaries(weeks); err != nil {
			contract.LogFatal("Failed to print weekly stats", err)
		}
	},
}

// statsDailyCmd shows the stored rows of one day.
var statsDailyCmd = &cobra.Command{
	Use:   "daily [date]",
	Short: "Show the per-repository stats of one stored day (default today)",
	Long: `Show the daily_stats rows of one day ordered by productivity score, plus
their totals and the dominant day type.

Examples:
  devpulse stats daily
  devpulse stats daily 2025-09-15
  devpulse stats daily yesterday --output json`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: statsSetupMinimalWrapper,
	Run: func(_ *cobra.Command, args []string) {
		day := schema.TruncateDay(time.Now())
		if len(args) == 1 {
			d, err := contract.ParseDate(args[0], time.Now())
			if err != nil {
				contract.LogFatal("Invalid date", err)
			}
			day = d
		}
		detail, err := statsStore().DailyDetail(rootCtx, day)
		if err != nil {
			contract.LogFatal("Failed to load daily stats", err)
		}
		if err := outwriter.NewOutWriter(os.Stdout, cfg).WriteDailyDetail(detail); err != nil {
			contract.LogFatal("Failed to print daily stats", err)
		}
	},
}

// statsCommitsCmd shows the most recent stored commits.
var statsCommitsCmd = &cobra.Command{
	Use:   "commits",
	Short: "Show the most recent stored commits with their tag",
	Long: `List stored commits newest first.

Examples:
  devpulse stats commits --limit 20`,
	PreRunE: statsSetupMinimalWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		commits, err := statsStore().RawCommits(rootCtx, limit)
		if err != nil {
			contract.LogFatal("Failed to load commits", err)
		}
		if err := outwriter.NewOutWriter(os.Stdout, cfg).WriteRawCommits(commits); err != nil {
			contract.LogFatal("Failed to print commits", err)
		}
	},
}

// statsMigrateCmd runs database migrations for the stats store.
var statsMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations (upgrades/downgrades)",
	Long: `Manage database schema versions for the stats store.

By default, migrates to the latest version. Use --target-version for specific versions.

Examples:
  # Migrate to latest version (default)
  devpulse stats migrate

  # Migrate to specific version
  devpulse stats migrate --target-version 2

  # Rollback to initial state
  devpulse stats migrate --target-version 0`,
	PreRunE: statsMigrateSetup,
	Run: func(_ *cobra.Command, _ []string) {
		targetVersion := viper.GetInt("target-version")
		if err := iocache.MigrateStats(cfg.StatsBackend, cfg.StatsDBConnect, targetVersion, os.Stdout); err != nil {
			contract.LogFatal("Failed to run migrations", err)
		}
	},
}
