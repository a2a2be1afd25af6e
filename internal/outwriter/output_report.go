package outwriter

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/devpulse/core/tags"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/internal/parquet"
	"github.com/huangsam/devpulse/schema"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

const rule = "======================================================================"

// printReport dispatches on the configured output format.
func printReport(ow *OutWriter, report schema.Report, target *schema.DayStats, registry *tags.Registry, singleDay bool) error {
	switch ow.cfg.Output {
	case schema.JSONOut:
		return writeWithFile(ow.out, ow.cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON report")
	case schema.CSVOut:
		return printReportCSV(ow, report)
	case schema.ParquetOut:
		return printReportParquet(ow, report)
	default:
		fmtFloat := createFormatter(ow.cfg.Precision)
		if target != nil {
			writeDaySummary(ow.out, *target, registry, singleDay)
		}
		if !singleDay && len(report.Weeks) > 0 {
			writeWeekSummary(ow.out, report.Weeks)
			if err := writeWeekTable(ow.out, report.Weeks, fmtFloat); err != nil {
				return fmt.Errorf("error writing week table: %w", err)
			}
		}
		return nil
	}
}

// splitOutputPath returns "<base>.<kind><ext>" for multi-file exports.
func splitOutputPath(outputFile, kind, defaultExt string) string {
	ext := filepath.Ext(outputFile)
	if ext == "" {
		ext = defaultExt
	}
	return strings.TrimSuffix(outputFile, filepath.Ext(outputFile)) + "." + kind + ext
}

// printReportCSV writes days to stdout, or weeks and days to two files.
func printReportCSV(ow *OutWriter, report schema.Report) error {
	fmtFloat := createFormatter(ow.cfg.Precision)
	if ow.cfg.OutputFile == "" {
		return writeDaysCSV(ow.out, report.Days, fmtFloat)
	}
	weeksFile := splitOutputPath(ow.cfg.OutputFile, "weeks", ".csv")
	if err := writeWithFile(ow.out, weeksFile, func(w io.Writer) error {
		return writeWeeksCSV(w, report.Weeks, fmtFloat)
	}, "Wrote CSV weeks"); err != nil {
		return err
	}
	daysFile := splitOutputPath(ow.cfg.OutputFile, "days", ".csv")
	return writeWithFile(ow.out, daysFile, func(w io.Writer) error {
		return writeDaysCSV(w, report.Days, fmtFloat)
	}, "Wrote CSV days")
}

// printReportParquet writes weeks and days to two Parquet files.
func printReportParquet(ow *OutWriter, report schema.Report) error {
	if ow.cfg.OutputFile == "" {
		return errors.New("--output-file is required for parquet output")
	}
	days := parquet.ConvertDayStats(report.Days)
	daysFile := splitOutputPath(ow.cfg.OutputFile, "days", ".parquet")
	if err := parquet.Write(days, daysFile); err != nil {
		return err
	}

	weeks := make([]parquet.WeeklyStat, 0, len(report.Weeks))
	for _, w := range report.Weeks {
		weeks = append(weeks, parquet.WeeklyStat{
			Year:              int32(w.ISOYear),
			Week:              int32(w.ISOWeek),
			RepoName:          parquet.AllRepos,
			ProductivityScore: w.AvgProductivityIndex,
			TotalCommits:      int32(w.TotalCommits),
			WeightedCommits:   w.WeightedCommits,
			LinesTouched:      int32(w.LinesTouched),
		})
	}
	weeksFile := splitOutputPath(ow.cfg.OutputFile, "weeks", ".parquet")
	if err := parquet.Write(weeks, weeksFile); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(ow.out, "💾 Wrote %d days to %s and %d weeks to %s\n", len(days), daysFile, len(weeks), weeksFile)
	return nil
}

func writeDaysCSV(w io.Writer, days []schema.DayStats, fmtFloat func(float64) string) error {
	header := []string{
		"date", "commits", "weighted_commits", "files_modified", "lines_added", "lines_deleted",
		"lines_net", "day_type", "cognitive_load", "productivity_index", "tags",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, d := range days {
			if !d.Active() {
				continue
			}
			row := []string{
				d.Date.Format(schema.DateLayout),
				strconv.Itoa(d.TotalCommits),
				fmtFloat(d.WeightedCommits),
				strconv.Itoa(d.FilesModified),
				strconv.Itoa(d.LinesAdded),
				strconv.Itoa(d.LinesDeleted),
				strconv.Itoa(d.LinesNet),
				d.DayType,
				fmtFloat(d.CognitiveLoad),
				fmtFloat(d.ProductivityIndex),
				TagDistribution(d.Tags),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeWeeksCSV(w io.Writer, weeks []schema.WeekStats, fmtFloat func(float64) string) error {
	header := []string{
		"week", "period", "description", "commits", "weighted_commits", "tag_coverage",
		"lines_touched", "lines_net", "avg_cognitive_load", "avg_productivity_index",
		"active_days", "coding_hours", "testing_hours",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, wk := range weeks {
			row := []string{
				strconv.Itoa(wk.WeekNumber),
				wk.Period,
				wk.Description,
				strconv.Itoa(wk.TotalCommits),
				fmtFloat(wk.WeightedCommits),
				fmtFloat(wk.TagCoverage),
				strconv.Itoa(wk.LinesTouched),
				strconv.Itoa(wk.LinesNet),
				fmtFloat(wk.AvgCognitiveLoad),
				fmtFloat(wk.AvgProductivityIndex),
				strconv.Itoa(wk.ActiveDays),
				fmtFloat(wk.CodingHours),
				fmtFloat(wk.TestingHours),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		return nil
	})
}

// TagDistribution renders a histogram as "TAG:count" pairs, largest first.
func TagDistribution(histogram map[string]int) string {
	names := sortedTags(histogram)
	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = fmt.Sprintf("%s:%d", name, histogram[name])
	}
	return strings.Join(parts, ", ")
}

// sortedTags orders tags by count descending, then name.
func sortedTags(histogram map[string]int) []string {
	names := make([]string, 0, len(histogram))
	for name := range histogram {
		names = append(names, name)
	}
	slices.SortFunc(names, func(a, b string) int {
		if histogram[a] != histogram[b] {
			return histogram[b] - histogram[a]
		}
		return strings.Compare(a, b)
	})
	return names
}

func sortedRepos(repos map[string]schema.RepoBreakdown) []string {
	names := make([]string, 0, len(repos))
	for name := range repos {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// writeDaySummary prints the per-repository and total figures of one day.
func writeDaySummary(w io.Writer, day schema.DayStats, registry *tags.Registry, singleDay bool) {
	title := "📊 TODAY'S STATS"
	if singleDay {
		title = "📊 ANALYZED DAY STATS"
	}
	_, _ = fmt.Fprintln(w, "\n"+rule)
	_, _ = contract.HeaderColor.Fprintln(w, title)
	_, _ = fmt.Fprintln(w, rule)
	_, _ = fmt.Fprintf(w, "📅 Date: %s\n\n", day.Date.Format(schema.DateLayout))

	for _, repo := range sortedRepos(day.Repos) {
		b := day.Repos[repo]
		_, _ = fmt.Fprintf(w, "📊 %s:\n", schema.ShortRepoName(repo))
		_, _ = fmt.Fprintf(w, "   ✨ Commits: %d\n", b.Commits)
		_, _ = fmt.Fprintf(w, "   💯 Net lines: %s\n\n", signed(b.NetLines))
	}

	_, _ = contract.HeaderColor.Fprintln(w, "📊 DAILY TOTAL:")
	_, _ = fmt.Fprintf(w, "   ✨ Total commits: %d (weighted: %.1f)\n", day.TotalCommits, day.WeightedCommits)
	_, _ = fmt.Fprintf(w, "   📁 Files modified: %d\n", day.FilesModified)
	_, _ = fmt.Fprintf(w, "   📈 Lines added: +%s\n", comma(day.LinesAdded))
	_, _ = fmt.Fprintf(w, "   📉 Lines removed: -%s\n", comma(day.LinesDeleted))
	_, _ = fmt.Fprintf(w, "   🔢 Lines touched: %s\n", comma(day.LinesTouched()))
	_, _ = fmt.Fprintf(w, "   💯 Net lines: %s\n", signed(day.LinesNet))
	_, _ = fmt.Fprintf(w, "   %s Day type: %s\n", day.DayTypeIcon, day.DayType)
	_, _ = fmt.Fprintf(w, "   🧠 Cognitive Load: %.2fx\n", day.CognitiveLoad)
	_, _ = fmt.Fprintf(w, "   🚀 Productivity Index: %s\n",
		contract.ColorProductivity(day.ProductivityIndex, fmt.Sprintf("%.2f", day.ProductivityIndex)))

	if len(day.Tags) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w, "\n🏷️ TAG Distribution:")
	for _, tag := range sortedTags(day.Tags) {
		_, _ = fmt.Fprintf(w, "   [%s]: %d commits (weight: %gx)\n", tag, day.Tags[tag], registry.Weight(tag))
	}
}

// writeWeekSummary prints the last week of the report.
func writeWeekSummary(w io.Writer, weeks []schema.WeekStats) {
	last := weeks[len(weeks)-1]
	_, _ = fmt.Fprintln(w, "\n"+rule)
	_, _ = contract.HeaderColor.Fprintln(w, "📊 LAST WEEK SUMMARY")
	_, _ = fmt.Fprintln(w, rule)
	_, _ = fmt.Fprintf(w, "🗓️ Period: %s\n\n", last.Period)

	for _, repo := range sortedRepos(last.Repos) {
		b := last.Repos[repo]
		_, _ = fmt.Fprintf(w, "📊 %s:\n", schema.ShortRepoName(repo))
		_, _ = fmt.Fprintf(w, "   ✨ Commits: %d\n", b.Commits)
		_, _ = fmt.Fprintf(w, "   💯 Net lines: %s\n\n", signed(b.NetLines))
	}

	_, _ = contract.HeaderColor.Fprintln(w, "📊 WEEKLY TOTAL:")
	_, _ = fmt.Fprintf(w, "   ✨ Total commits: %d (weighted: %.1f)\n", last.TotalCommits, last.WeightedCommits)
	_, _ = fmt.Fprintf(w, "   💯 Total net lines: %s\n", signed(last.LinesNet))
	_, _ = fmt.Fprintf(w, "   📊 Weeks analyzed: %d\n", len(weeks))
	_, _ = fmt.Fprintf(w, "   🗓️ Full period: %s → %s\n",
		weeks[0].StartDate.Format(schema.DateLayout), last.EndDate.Format(schema.DateLayout))
}

// writeWeekTable prints one row per report week.
func writeWeekTable(w io.Writer, weeks []schema.WeekStats, fmtFloat func(float64) string) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Week", "Period", "Commits", "Weighted", "Tag %", "Lines", "CL", "PI", "Days"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	var data [][]string
	for _, wk := range weeks {
		data = append(data, []string{
			strconv.Itoa(wk.WeekNumber),
			wk.Period,
			strconv.Itoa(wk.TotalCommits),
			fmtFloat(wk.WeightedCommits),
			fmtFloat(wk.TagCoverage),
			comma(wk.LinesTouched),
			fmtFloat(wk.AvgCognitiveLoad),
			contract.ColorProductivity(wk.AvgProductivityIndex, fmtFloat(wk.AvgProductivityIndex)),
			strconv.Itoa(wk.ActiveDays),
		})
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}
