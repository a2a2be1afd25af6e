package cmd

import (
	"os"

	"github.com/huangsam/devpulse/core"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/spf13/cobra"
)

// checkCmd verifies upstream access before a long run.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the token, rate limit and repository access (fails on unreachable repos)",
	Long: `Check the configured provider before running a report or an ingest.

Shows the remaining API quota and whether each repository's branches can be listed.
Exits with a non-zero code when any repository is unreachable.

Examples:
  # Check the default repositories
  devpulse check

  # Check local clones
  devpulse check --provider local --local-root ~/src --repos acme/api`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCheck(rootCtx, cfg, services, os.Stdout); err != nil {
			contract.LogFatal("Connection check failed", err)
		}
	},
}
