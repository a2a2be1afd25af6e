package cmd

import (
	"os"

	"github.com/huangsam/devpulse/core"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/spf13/cobra"
)

// reportCmd builds the full productivity report.
var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Build the productivity spreadsheet and print the daily and weekly summary.",
	Long: `Fetch every commit of the configured repositories within the window, categorize it
and aggregate it into days and weeks.

Writes a spreadsheet with three sheets:
- Summary - period totals and averages
- Weekly  - one row per week with per-repository commit counts
- Daily   - one row per active day with its tag distribution and day type

Then prints today's stats (or the last active day) plus the last week summary.

Examples:
  # Default repositories since the default start date
  devpulse report

  # Two repositories, a custom window and spreadsheet path
  devpulse report --repos acme/api,acme/web --start 2025-09-01 --excel-file sept.xlsx

  # Export the days and weeks as CSV as well
  devpulse report --output csv --output-file pulse.csv`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteReport(rootCtx, cfg, services, os.Stdout); err != nil {
			contract.LogFatal("Cannot build report", err)
		}
	},
}

// summaryCmd prints the summary of a single day.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Print the stats of today (or --date) without writing a spreadsheet.",
	Long: `Show the per-repository commits, totals, tag distribution and day type of one day.

Without --date the day is today when it has commits, else the last active day.

Examples:
  # Today's stats
  devpulse summary

  # A specific day
  devpulse summary --date 2025-09-15

  # Yesterday, as JSON
  devpulse summary --date yesterday --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSummary(rootCtx, cfg, services, os.Stdout); err != nil {
			contract.LogFatal("Cannot build summary", err)
		}
	},
}
