package outwriter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/huangsam/devpulse/core/publish"
	"github.com/huangsam/devpulse/core/tags"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/internal/parquet"
	"github.com/huangsam/devpulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

func testConfig(output schema.OutputMode) *contract.Config {
	return &contract.Config{Output: output, Precision: 2, Width: 120}
}

func sampleDay() schema.DayStats {
	return schema.DayStats{
		Date: time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC),
		Repos: map[string]schema.RepoBreakdown{
			"acme/web": {Commits: 1, NetLines: -40},
			"acme/api": {Commits: 2, NetLines: 1140},
		},
		TotalCommits:      3,
		WeightedCommits:   2.8,
		FilesModified:     3,
		LinesAdded:        1150,
		LinesDeleted:      50,
		LinesNet:          1100,
		Tags:              map[string]int{"FEAT": 2, "FIX": 1},
		DayType:           "FEATURE_DEVELOPMENT",
		DayTypeIcon:       "🚀",
		CognitiveLoad:     1.25,
		ProductivityIndex: 26.67,
	}
}

func sampleReport() schema.Report {
	d := sampleDay()
	return schema.Report{
		Repositories: []string{"acme/api", "acme/web"},
		Start:        d.Date,
		End:          d.Date.AddDate(0, 0, 1),
		Days:         []schema.DayStats{d, {Date: d.Date.AddDate(0, 0, 1)}},
		Weeks: []schema.WeekStats{{
			WeekNumber:           1,
			ISOYear:              2025,
			ISOWeek:              34,
			StartDate:            d.Date.AddDate(0, 0, -2),
			EndDate:              d.Date.AddDate(0, 0, 1),
			Period:               "18-21 August 2025",
			Description:          "Tag system introduction",
			Repos:                d.Repos,
			TotalCommits:         3,
			WeightedCommits:      2.8,
			TagCoverage:          100,
			LinesTouched:         1200,
			LinesNet:             1100,
			AvgProductivityIndex: 26.67,
			ActiveDays:           1,
		}},
		Totals: schema.Totals{Commits: 3, ActiveDays: 1},
	}
}

func TestWriteReportText(t *testing.T) {
	var buf bytes.Buffer
	day := sampleDay()
	ow := NewOutWriter(&buf, testConfig(schema.TextOut))

	require.NoError(t, ow.WriteReport(sampleReport(), &day, tags.Default(), false))
	out := buf.String()

	assert.Contains(t, out, "TODAY'S STATS")
	assert.Contains(t, out, "📅 Date: 2025-08-20")
	assert.Contains(t, out, "📊 api:")
	assert.Contains(t, out, "Net lines: +1,140")
	assert.Contains(t, out, "Net lines: -40")
	assert.Contains(t, out, "Lines touched: 1,200")
	assert.Contains(t, out, "🚀 Day type: FEATURE_DEVELOPMENT")
	assert.Contains(t, out, "Productivity Index: 26.67")
	assert.Contains(t, out, "[FEAT]: 2 commits")
	assert.Less(t, strings.Index(out, "[FEAT]"), strings.Index(out, "[FIX]"))
	assert.Contains(t, out, "LAST WEEK SUMMARY")
	assert.Contains(t, out, "Period: 18-21 August 2025")
	assert.Contains(t, out, "Full period: 2025-08-18 → 2025-08-21")
}

func TestWriteReportSingleDaySkipsWeek(t *testing.T) {
	var buf bytes.Buffer
	day := sampleDay()
	ow := NewOutWriter(&buf, testConfig(schema.TextOut))

	require.NoError(t, ow.WriteReport(sampleReport(), &day, tags.Default(), true))
	assert.Contains(t, buf.String(), "ANALYZED DAY STATS")
	assert.NotContains(t, buf.String(), "LAST WEEK SUMMARY")
}

func TestWriteReportJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewOutWriter(&buf, testConfig(schema.JSONOut)).WriteReport(sampleReport(), nil, tags.Default(), false))

	var decoded schema.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Len(t, decoded.Weeks, 1)
	assert.Equal(t, 3, decoded.Totals.Commits)
}

func TestWriteReportCSVStdoutWritesActiveDays(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewOutWriter(&buf, testConfig(schema.CSVOut)).WriteReport(sampleReport(), nil, tags.Default(), false))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2, "header plus one active day")
	assert.Equal(t, "date", records[0][0])
	assert.Equal(t, "2025-08-20", records[1][0])
	assert.Equal(t, "26.67", records[1][9])
	assert.Equal(t, "FEAT:2, FIX:1", records[1][10])
}

func TestWriteReportCSVFiles(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(schema.CSVOut)
	cfg.OutputFile = filepath.Join(dir, "out.csv")

	require.NoError(t, NewOutWriter(&bytes.Buffer{}, cfg).WriteReport(sampleReport(), nil, tags.Default(), false))
	assert.FileExists(t, filepath.Join(dir, "out.weeks.csv"))
	assert.FileExists(t, filepath.Join(dir, "out.days.csv"))
}

func TestWriteReportParquet(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig(schema.ParquetOut)

	err := NewOutWriter(&bytes.Buffer{}, cfg).WriteReport(sampleReport(), nil, tags.Default(), false)
	assert.Error(t, err, "parquet needs an output file")

	cfg.OutputFile = filepath.Join(dir, "report")
	require.NoError(t, NewOutWriter(&bytes.Buffer{}, cfg).WriteReport(sampleReport(), nil, tags.Default(), false))

	days, err := parquet.Read[parquet.DailyStat](filepath.Join(dir, "report.days.parquet"))
	require.NoError(t, err)
	assert.Len(t, days, 3, "aggregate row plus two repositories")

	weeks, err := parquet.Read[parquet.WeeklyStat](filepath.Join(dir, "report.weeks.parquet"))
	require.NoError(t, err)
	require.Len(t, weeks, 1)
	assert.Equal(t, int32(34), weeks[0].Week)
}

func TestTagDistribution(t *testing.T) {
	assert.Equal(t, "FIX:3, DOC:1, FEAT:1", TagDistribution(map[string]int{"FEAT": 1, "FIX": 3, "DOC": 1}))
	assert.Empty(t, TagDistribution(nil))
}

func TestSignedAndComma(t *testing.T) {
	assert.Equal(t, "+1,234", signed(1234))
	assert.Equal(t, "+0", signed(0))
	assert.Equal(t, "-12,000", signed(-12000))
	assert.Equal(t, "987", comma(987))
}

func TestSplitOutputPath(t *testing.T) {
	assert.Equal(t, "out.days.csv", splitOutputPath("out.csv", "days", ".csv"))
	assert.Equal(t, "out.weeks.parquet", splitOutputPath("out", "weeks", ".parquet"))
}

func TestWriteCategorizations(t *testing.T) {
	rows := []CategorizedCommit{
		{
			CommitRecord:         schema.CommitRecord{SHA: "abcdef123456", Repository: "acme/api", Message: "[FEAT] add login\n\nbody"},
			CategorizationResult: schema.CategorizationResult{Tag: "FEAT", Method: schema.MethodExplicit, Confidence: 1},
		},
		{
			CommitRecord:         schema.CommitRecord{SHA: "123", Repository: "acme/web", Message: "stuff"},
			CategorizationResult: schema.CategorizationResult{Tag: schema.UntaggedTag, Method: schema.MethodFallback},
		},
	}

	var text bytes.Buffer
	require.NoError(t, NewOutWriter(&text, testConfig(schema.TextOut)).WriteCategorizations(rows))
	assert.Contains(t, text.String(), "abcdef1")
	assert.Contains(t, text.String(), "add login")
	assert.Contains(t, text.String(), "Categorized 2 commits, 1 untagged.")

	var csvBuf bytes.Buffer
	require.NoError(t, NewOutWriter(&csvBuf, testConfig(schema.CSVOut)).WriteCategorizations(rows))
	records, err := csv.NewReader(&csvBuf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "[FEAT] add login", records[1][4])

	var jsonBuf bytes.Buffer
	require.NoError(t, NewOutWriter(&jsonBuf, testConfig(schema.JSONOut)).WriteCategorizations(rows))
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(jsonBuf.Bytes(), &decoded))
	assert.Equal(t, "FEAT", decoded[0]["tag"])
	assert.Equal(t, "abcdef123456", decoded[0]["sha"])
}

func TestWriteTags(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewOutWriter(&buf, testConfig(schema.TextOut)).WriteTags(tags.Default()))
	assert.Contains(t, buf.String(), "FEAT")
	assert.Contains(t, buf.String(), "REFACTOR")

	var csvBuf bytes.Buffer
	require.NoError(t, NewOutWriter(&csvBuf, testConfig(schema.CSVOut)).WriteTags(tags.Default()))
	records, err := csv.NewReader(&csvBuf).ReadAll()
	require.NoError(t, err)
	assert.Len(t, records, len(tags.Default().Tags())+1)
}

func TestWriteConnection(t *testing.T) {
	var buf bytes.Buffer
	report := schema.ConnectionReport{
		Provider:  "github",
		RateLimit: &schema.RateInfo{Limit: 5000, Remaining: 4999, Reset: time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)},
		Repositories: map[string]string{
			"acme/api": "ok (3 branches)",
			"acme/old": "not found",
		},
	}
	require.NoError(t, NewOutWriter(&buf, testConfig(schema.TextOut)).WriteConnection(report))
	out := buf.String()
	assert.Contains(t, out, "Rate limit: 4999/5000")
	assert.Contains(t, out, "✅ acme/api: ok (3 branches)")
	assert.Contains(t, out, "❌ acme/old: not found")
}

func TestWriteStoredStats(t *testing.T) {
	var buf bytes.Buffer
	ow := NewOutWriter(&buf, testConfig(schema.TextOut))

	require.NoError(t, ow.WriteWeeklySummaries([]schema.WeeklySummary{
		{Year: 2025, Week: 34, ProductivityScore: 17, TotalCommits: 7, Repos: 2, LinesTouched: 1500},
	}))
	assert.Contains(t, buf.String(), "1,500")

	buf.Reset()
	require.NoError(t, ow.WriteDailyDetail(schema.DailyDetail{
		Date:    time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC),
		Summary: schema.DailySummary{DayType: "MIXED", DayTypeIcon: "📦"},
	}))
	assert.Contains(t, buf.String(), "No stored activity")

	buf.Reset()
	require.NoError(t, ow.WriteDailyDetail(schema.DailyDetail{
		Date: time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC),
		Repos: []schema.DailyStatsRow{
			{RepoName: "acme/api", TotalCommits: 2, NetLines: 30, TagsBreakdown: map[string]int{"FEAT": 2}},
		},
		Summary: schema.DailySummary{TotalCommits: 2, NetLines: 30, DayType: "FEATURE_DEVELOPMENT", DayTypeIcon: "🚀"},
	}))
	assert.Contains(t, buf.String(), "FEAT:2")
	assert.Contains(t, buf.String(), "🚀 FEATURE_DEVELOPMENT")
}

func TestWriteRawCommits(t *testing.T) {
	var buf bytes.Buffer
	commits := []schema.StoredCommit{{
		Hash:     "0123456789abcdef",
		RepoName: "acme/api",
		Date:     time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC),
		Message:  "[FIX] nil check\n\nlong body",
		Analysis: `{"tags":["FIX"],"weight":1.5,"net_lines":2,"canonic_tag":"FIX"}`,
	}}
	require.NoError(t, NewOutWriter(&buf, testConfig(schema.TextOut)).WriteRawCommits(commits))
	out := buf.String()
	assert.Contains(t, out, "0123456")
	assert.Contains(t, out, "FIX")
	assert.Contains(t, out, "1.5")
	assert.NotContains(t, out, "long body")

	buf.Reset()
	require.NoError(t, NewOutWriter(&buf, testConfig(schema.JSONOut)).WriteRawCommits(commits))
	assert.Contains(t, buf.String(), `"hash": "0123456789abcdef"`)
}

func TestWritePublishResult(t *testing.T) {
	var buf bytes.Buffer
	res := publish.Result{
		RunID:        "run-1",
		Repositories: []string{"acme/api", "acme/web"},
		Failed:       []string{"acme/web"},
		Commits:      10,
		DailyRows:    3,
		WeeklyRows:   1,
	}
	require.NoError(t, NewOutWriter(&buf, testConfig(schema.TextOut)).WritePublishResult(res))
	out := buf.String()
	assert.Contains(t, out, "Published 10 commits, 3 daily rows and 1 weekly rows from 1 repositories")
	assert.Contains(t, out, "❌ acme/web failed")
	assert.Contains(t, out, "run-1")
}

func TestMaxMessageWidth(t *testing.T) {
	assert.Equal(t, 20, maxMessageWidth(&contract.Config{Width: 60}))
	assert.Equal(t, 50, maxMessageWidth(&contract.Config{Width: 120}))
	assert.Equal(t, 90, maxMessageWidth(&contract.Config{Width: 400}))
}
