package outwriter

import (
	"os"

	"github.com/huangsam/devpulse/internal/contract"
	"golang.org/x/term"
)

// terminalWidth returns the configured width, the detected terminal width, or 80.
func terminalWidth(cfg *contract.Config) int {
	if cfg.Width > 0 {
		return cfg.Width
	}
	detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || detectedWidth <= 0 {
		return 80 // Conservative default for narrow terminals and CI
	}
	return detectedWidth
}

// maxMessageWidth calculates the width left for commit messages in the
// categorization table.
func maxMessageWidth(cfg *contract.Config) int {
	// Repo + SHA + Tag + Method + Confidence with borders/padding
	baseWidth := 70

	available := terminalWidth(cfg) - baseWidth
	if available < 20 {
		return 20
	}
	if available > 90 {
		return 90
	}
	return available
}
