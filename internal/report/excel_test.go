package report

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/huangsam/devpulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleReport() schema.Report {
	day := time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)
	repos := map[string]schema.RepoBreakdown{
		"acme/api": {Commits: 2, NetLines: 90},
		"acme/web": {Commits: 1, NetLines: -40},
	}
	return schema.Report{
		Repositories: []string{"acme/web", "acme/api"},
		Weeks: []schema.WeekStats{{
			WeekNumber: 1, Period: "18-24 August 2025", Description: "Tag system introduction",
			Repos: repos, TotalCommits: 3, WeightedCommits: 2.75, LinesTouched: 200, LinesNet: 50,
			TagCoverage: 66.666, AvgCognitiveLoad: 1.234, AvgProductivityIndex: 26.666,
		}},
		Days: []schema.DayStats{
			{Date: day.AddDate(0, 0, -1)},
			{
				Date: day, Repos: repos, TotalCommits: 3, WeightedCommits: 2.75, LinesAdded: 125,
				LinesDeleted: 75, LinesNet: 50, Tags: map[string]int{"FEAT": 2, "FIX": 1},
				DayType: "FEATURE_DEVELOPMENT", DayTypeIcon: "🚀", ProductivityIndex: 26.666,
			},
		},
		Totals: schema.Totals{Commits: 3, WeightedCommits: 2.75, AvgTagCoverage: 66.666, LinesTouched: 1200, AvgProductivity: 26.666, ActiveDays: 1},
	}
}

func TestSaveAs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "productivity_20250820.xlsx")
	require.NoError(t, SaveAs(path, sampleReport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SummarySheet, WeeklySheet, DailySheet}, f.GetSheetList())

	summary, err := f.GetRows(SummarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"Metric", "Value", "Note"}, summary[0])
	assert.Equal(t, "3", summary[1][1])
	assert.Equal(t, "66.7%", summary[3][1])
	assert.Equal(t, "1,200", summary[4][1])

	weekly, err := f.GetRows(WeeklySheet)
	require.NoError(t, err)
	require.Len(t, weekly, 2)
	assert.Equal(t, []string{"Week", "Period", "Description", "Commits api", "Net lines api", "Commits web", "Net lines web"}, weekly[0][:7])
	assert.Equal(t, "Week 1", weekly[1][0])
	assert.Equal(t, "-40", weekly[1][6])

	daily, err := f.GetRows(DailySheet)
	require.NoError(t, err)
	require.Len(t, daily, 2, "inactive days are skipped")
	assert.Equal(t, "2025-08-20", daily[1][0])
	assert.Equal(t, "Wednesday", daily[1][1])
	assert.Contains(t, daily[1], "FEAT:2, FIX:1")
	assert.Contains(t, daily[1], "🚀 FEATURE_DEVELOPMENT")
	assert.Contains(t, daily[1], "26.67")
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, schema.Report{}))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(DailySheet)
	require.NoError(t, err)
	assert.Len(t, rows, 1, "header only")
}

func TestRound(t *testing.T) {
	assert.Equal(t, 26.67, round(26.666, 2))
	assert.Equal(t, 2.8, round(2.75, 1))
}
