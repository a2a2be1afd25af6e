package cmd

import (
	"os"

	"github.com/huangsam/devpulse/core"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/spf13/cobra"
)

// ingestCmd publishes recent activity to the stats store.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Publish commits and daily/weekly stats to the stats store.",
	Long: `Fetch the last --days-back days of each repository and upsert:
- every commit with its stats, tags and analysis
- one daily_stats row per day and repository
- one weekly_stats row per ISO week and repository

Repositories are published independently; a failing repository is reported
without stopping the others. A rate limit aborts the run.

Examples:
  # Publish the last 30 days to the default SQLite stats store
  devpulse ingest

  # Publish one repository to PostgreSQL
  DEVPULSE_STATS_BACKEND=postgresql DEVPULSE_STATS_DB_CONNECT="host=... dbname=pulse" \
    devpulse ingest --repo acme/api --days-back 7`,
	PreRunE: statsSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteIngest(rootCtx, cfg, services, cacheManager, os.Stdout); err != nil {
			contract.LogFatal("Cannot publish stats", err)
		}
	},
}
