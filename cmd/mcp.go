package cmd

import (
	"github.com/huangsam/devpulse/internal/mcp"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the DevPulse MCP server",
	Long: `Launch an MCP server over stdio that lets AI agents query the stats store
and categorize commit messages.

Tools:
- get_weekly_stats  - weekly scores across repositories
- get_daily_detail  - per-repository rows of one day
- get_raw_commits   - recent stored commits with their analysis
- categorize_commit - run the categorization pipeline on a message
- list_tags         - the tag taxonomy`,
	// Logs go to stderr, so stdout stays reserved for the protocol.
	PreRunE: statsSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		return mcp.StartMCPServer(rootCtx, cfg, cacheManager, services.Categorizer, version)
	},
}
