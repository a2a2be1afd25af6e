package contract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
)

// Color variables for console output.
var (
	HeaderColor  = color.New(color.FgCyan, color.Bold)
	GoodColor    = color.New(color.FgGreen)
	WarnColor    = color.New(color.FgYellow)
	BadColor     = color.New(color.FgRed, color.Bold)
	SubtleColor  = color.New(color.FgHiBlack)
	HighlightCol = color.New(color.FgMagenta, color.Bold)
)

// ColorProductivity colors a productivity index by band.
func ColorProductivity(value float64, text string) string {
	switch {
	case value >= 50:
		return GoodColor.Sprint(text)
	case value >= 20:
		return WarnColor.Sprint(text)
	case value > 0:
		return BadColor.Sprint(text)
	default:
		return SubtleColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. An empty path selects os.Stdout.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// GetDBFilePath returns the path to the SQLite DB file for the commit cache.
func GetDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".devpulse_cache.db"
	}
	return filepath.Join(homeDir, ".devpulse_cache.db")
}

// GetStatsDBFilePath returns the path to the SQLite DB file for analytics storage.
func GetStatsDBFilePath() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".devpulse_stats.db"
	}
	return filepath.Join(homeDir, ".devpulse_stats.db")
}

// Truncate shortens s to maxWidth runes with a trailing ellipsis.
func Truncate(s string, maxWidth int) string {
	runes := []rune(s)
	if len(runes) > maxWidth && maxWidth > 3 {
		return string(runes[:maxWidth-3]) + "..."
	}
	return s
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// DefaultExcelFile names the spreadsheet after the day it was produced.
func DefaultExcelFile(day string) string {
	return fmt.Sprintf("productivity_%s.xlsx", strings.ReplaceAll(day, "-", ""))
}
