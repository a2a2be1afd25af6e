package cmd

import (
	"os"
	"strings"

	"github.com/huangsam/devpulse/core"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/spf13/cobra"
)

// categorizeCmd shows how commits are tagged.
var categorizeCmd = &cobra.Command{
	Use:   "categorize [message]",
	Short: "Categorize a commit message, or every commit in the window.",
	Long: `Run the categorization pipeline and show the tag, method, confidence and reasoning.

Stages, first confident match wins:
- explicit tag in the message ([FIX], feat:, emoji)
- keywords in the message
- touched file paths
- diff heuristics
- a combination of the weaker signals
- the OpenAI classifier when --llm is enabled

Examples:
  # Categorize a single message
  devpulse categorize "Resolve crash when the payload is empty"

  # Give the file paths as extra evidence
  devpulse categorize "update" --files docs/setup.md,README.md

  # Categorize the commits of the last week
  devpulse categorize --start "1 week ago"`,
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, args []string) {
		files, _ := cmd.Flags().GetStringSlice("files")
		if err := core.ExecuteCategorize(rootCtx, cfg, services, strings.Join(args, " "), files, os.Stdout); err != nil {
			contract.LogFatal("Cannot categorize commits", err)
		}
	},
}

// tagsCmd displays the tag taxonomy.
var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "Display the tag taxonomy with weights, aliases and icons",
	Long: `Show every tag with its weight, aliases, icon and description.

Weights scale commits in the weighted commit count and the productivity index.
No Git analysis is performed - this is purely informational.

Examples:
  devpulse tags
  devpulse tags --output json`,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteTags(rootCtx, cfg, services, os.Stdout); err != nil {
			contract.LogFatal("Cannot display tags", err)
		}
	},
}
