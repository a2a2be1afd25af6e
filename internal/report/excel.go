// Package report renders a productivity report as an Excel workbook.
package report

import (
	"fmt"
	"io"
	"math"
	"slices"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/devpulse/internal/outwriter"
	"github.com/huangsam/devpulse/schema"
	"github.com/xuri/excelize/v2"
)

// Sheet names in workbook order.
const (
	SummarySheet = "Summary"
	WeeklySheet  = "Weekly"
	DailySheet   = "Daily"
)

const maxColumnWidth = 50

// SaveAs writes the workbook for report to path.
func SaveAs(path string, report schema.Report) error {
	f, err := build(report)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", path, err)
	}
	return nil
}

// Write streams the workbook for report to w.
func Write(w io.Writer, report schema.Report) error {
	f, err := build(report)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	return f.Write(w)
}

func build(report schema.Report) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		_ = f.Close()
		return nil, err
	}
	for _, name := range []string{WeeklySheet, DailySheet} {
		if _, err := f.NewSheet(name); err != nil {
			_ = f.Close()
			return nil, err
		}
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#DDEBF7"}},
	})
	if err != nil {
		_ = f.Close()
		return nil, err
	}

	sheets := map[string][][]any{
		SummarySheet: summaryRows(report),
		WeeklySheet:  weeklyRows(report),
		DailySheet:   dailyRows(report),
	}
	for _, name := range []string{SummarySheet, WeeklySheet, DailySheet} {
		if err := writeSheet(f, name, sheets[name], headerStyle); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to write %s sheet: %w", name, err)
		}
	}
	f.SetActiveSheet(0)
	return f, nil
}

// writeSheet writes rows starting at A1, styles the header and sizes columns.
func writeSheet(f *excelize.File, sheet string, rows [][]any, headerStyle int) error {
	widths := map[int]int{}
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return err
		}
		for col, v := range row {
			widths[col] = max(widths[col], utf8.RuneCountInString(fmt.Sprint(v)))
		}
	}
	if len(rows) == 0 {
		return nil
	}

	last, err := excelize.CoordinatesToCellName(len(rows[0]), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, headerStyle); err != nil {
		return err
	}
	if err := f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}
	for col, width := range widths {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return err
		}
		if err := f.SetColWidth(sheet, name, name, float64(min(width+2, maxColumnWidth))); err != nil {
			return err
		}
	}
	return nil
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func sortedRepos(report schema.Report) []string {
	repos := slices.Clone(report.Repositories)
	slices.Sort(repos)
	return repos
}

func summaryRows(report schema.Report) [][]any {
	t := report.Totals
	return [][]any{
		{"Metric", "Value", "Note"},
		{"Total commits", t.Commits, "All commits in the period"},
		{"Total weighted commits", round(t.WeightedCommits, 1), "Based on tag weights (REFACTOR=2x, FIX=1.5x)"},
		{"Average tag coverage", fmt.Sprintf("%.1f%%", t.AvgTagCoverage), "Mean over weeks"},
		{"Total lines touched", humanize.Comma(int64(t.LinesTouched)), "Added + removed"},
		{"Total net lines", humanize.Comma(int64(t.LinesNet)), "Added - removed"},
		{"Total testing time", fmt.Sprintf("%.1fh", t.TestingHours), "22 min per commit estimate"},
		{"Total coding time", fmt.Sprintf("%.1fh", t.CodingHours), "22 min per commit estimate"},
		{"Average productivity index", round(t.AvgProductivity, 2), "Mean over active days"},
		{"Active days", t.ActiveDays, ""},
		{"Classified commits", t.ClassifiedCommits, ""},
		{"Unclassified commits", t.UnclassifiedCommits, "UNTAGGED after every strategy"},
	}
}

func weeklyRows(report schema.Report) [][]any {
	repos := sortedRepos(report)
	header := []any{"Week", "Period", "Description"}
	for _, repo := range repos {
		short := schema.ShortRepoName(repo)
		header = append(header, "Commits "+short, "Net lines "+short)
	}
	header = append(header,
		"Total commits", "Weighted commits", "Files modified", "Lines touched", "Total net lines",
		"Tag coverage %", "Cognitive load", "Productivity index", "Testing time (h)", "Coding time (h)")

	rows := [][]any{header}
	for _, w := range report.Weeks {
		row := []any{fmt.Sprintf("Week %d", w.WeekNumber), w.Period, w.Description}
		for _, repo := range repos {
			b := w.Repos[repo]
			row = append(row, b.Commits, b.NetLines)
		}
		row = append(row,
			w.TotalCommits,
			round(w.WeightedCommits, 1),
			w.FilesModified,
			w.LinesTouched,
			w.LinesNet,
			round(w.TagCoverage, 1),
			round(w.AvgCognitiveLoad, 2),
			round(w.AvgProductivityIndex, 2),
			round(w.TestingHours, 1),
			round(w.CodingHours, 1),
		)
		rows = append(rows, row)
	}
	return rows
}

func dailyRows(report schema.Report) [][]any {
	repos := sortedRepos(report)
	header := []any{"Date", "Day"}
	for _, repo := range repos {
		short := schema.ShortRepoName(repo)
		header = append(header, "Commits "+short, "Net lines "+short)
	}
	header = append(header,
		"Total commits", "Weighted commits", "Files", "Lines +", "Lines -", "Lines touched",
		"Total net lines", "Tag distribution", "Day type", "Cognitive load", "Productivity index")

	rows := [][]any{header}
	for _, d := range report.Days {
		if !d.Active() {
			continue
		}
		row := []any{d.Date.Format(schema.DateLayout), d.Date.Weekday().String()}
		for _, repo := range repos {
			b := d.Repos[repo]
			row = append(row, b.Commits, b.NetLines)
		}
		row = append(row,
			d.TotalCommits,
			round(d.WeightedCommits, 1),
			d.FilesModified,
			d.LinesAdded,
			d.LinesDeleted,
			d.LinesTouched(),
			d.LinesNet,
			outwriter.TagDistribution(d.Tags),
			d.DayTypeIcon+" "+d.DayType,
			round(d.CognitiveLoad, 2),
			round(d.ProductivityIndex, 2),
		)
		rows = append(rows, row)
	}
	return rows
}
