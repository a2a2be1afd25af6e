// Package outwriter has output and writer logic.
package outwriter

import (
	"io"
	"os"

	"github.com/huangsam/devpulse/core/publish"
	"github.com/huangsam/devpulse/core/tags"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
)

// OutWriter provides a unified interface for all output operations.
// It encapsulates the various output formats and provides a clean API for the command layer.
type OutWriter struct {
	out io.Writer
	cfg *contract.Config
}

// NewOutWriter creates a writer for cfg. Text output and stdout streams go to out.
func NewOutWriter(out io.Writer, cfg *contract.Config) *OutWriter {
	if out == nil {
		out = os.Stdout
	}
	return &OutWriter{out: out, cfg: cfg}
}

// WriteReport prints the target-day and last-week summaries, or exports the
// report days and weeks in the configured format.
func (ow *OutWriter) WriteReport(report schema.Report, target *schema.DayStats, registry *tags.Registry, singleDay bool) error {
	return printReport(ow, report, target, registry, singleDay)
}

// WriteCategorizations prints categorized commits.
func (ow *OutWriter) WriteCategorizations(rows []CategorizedCommit) error {
	return printCategorizations(ow, rows)
}

// WriteTags prints the tag taxonomy.
func (ow *OutWriter) WriteTags(registry *tags.Registry) error {
	return printTags(ow, registry)
}

// WriteConnection prints the result of an upstream connectivity check.
func (ow *OutWriter) WriteConnection(report schema.ConnectionReport) error {
	return printConnection(ow, report)
}

// WriteWeeklySummaries prints stored weekly aggregates.
func (ow *OutWriter) WriteWeeklySummaries(weeks []schema.WeeklySummary) error {
	return printWeeklySummaries(ow, weeks)
}

// WriteDailyDetail prints the stored rows of one day.
func (ow *OutWriter) WriteDailyDetail(detail schema.DailyDetail) error {
	return printDailyDetail(ow, detail)
}

// WriteRawCommits prints stored commits with their canonical tag.
func (ow *OutWriter) WriteRawCommits(commits []schema.StoredCommit) error {
	return printRawCommits(ow, commits)
}

// WritePublishResult prints the outcome of a publishing run.
func (ow *OutWriter) WritePublishResult(result publish.Result) error {
	return printPublishResult(ow, result)
}
