package productivity

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/huangsam/devpulse/core/categorize"
	"github.com/huangsam/devpulse/core/tags"
	"github.com/huangsam/devpulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(categorize.New(tags.Default()))
}

func day(d, h int) time.Time {
	return time.Date(2025, 8, d, h, 0, 0, 0, time.UTC)
}

func commit(repo, msg string, date time.Time, add, del int, files ...string) schema.CommitRecord {
	return schema.CommitRecord{
		SHA:          msg,
		Message:      msg,
		Author:       "Fabio",
		Date:         date,
		Repository:   repo,
		Additions:    add,
		Deletions:    del,
		FilesChanged: files,
	}
}

func sampleCommits() []schema.CommitRecord {
	return []schema.CommitRecord{
		commit("acme/api", "[FEAT] add login", day(20, 9), 100, 0, "a.go"),
		commit("acme/api", "[FEAT] add logout", day(20, 11), 50, 10, "a.go", "b.go"),
		commit("acme/web", "[FIX] null pointer", day(20, 15), 0, 40, "c.go"),
		commit("acme/web", "update some files", day(21, 10), 5, 5),
	}
}

func TestProductivityIndexExample(t *testing.T) {
	assert.InDelta(t, 26.67, ProductivityIndex(3, 100, 1.0, 1.5), 0.01)
}

func TestProductivityIndexUsesAbsoluteNetLines(t *testing.T) {
	assert.Equal(t, ProductivityIndex(4, 500, 1.3, 2.1), ProductivityIndex(4, -500, 1.3, 2.1))
}

func TestProductivityIndexZeroLoad(t *testing.T) {
	assert.Equal(t, 10.0, ProductivityIndex(1, 0, 1.0, 0))
}

func TestCognitiveLoad(t *testing.T) {
	tests := []struct {
		name                  string
		lines, files, commits int
		want                  float64
	}{
		{"no commits", 1000, 50, 0, 1.0},
		{"single empty commit", 0, 0, 1, 1 + math.Log(2)/6},
		{"saturates", 10_000_000, 100_000, 10_000, MaxCognitiveLoad},
		{"typical", 200, 3, 3, 1 + (math.Log(201)+math.Log(4)+math.Log(4))/6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CognitiveLoad(tt.lines, tt.files, tt.commits), 1e-9)
		})
	}
}

func TestCognitiveLoadBounds(t *testing.T) {
	for _, n := range []int{0, 1, 10, 1000, 1_000_000} {
		cl := CognitiveLoad(n*3, n, n)
		assert.GreaterOrEqual(t, cl, MinCognitiveLoad)
		assert.LessOrEqual(t, cl, MaxCognitiveLoad)
	}
}

func TestAnalyzeDay(t *testing.T) {
	stats := newTestAnalyzer().AnalyzeDay(context.Background(), day(20, 0), sampleCommits())

	assert.Equal(t, 3, stats.TotalCommits)
	assert.InDelta(t, 3.5, stats.WeightedCommits, 1e-9)
	assert.Equal(t, 3, stats.FilesModified)
	assert.Equal(t, 150, stats.LinesAdded)
	assert.Equal(t, 50, stats.LinesDeleted)
	assert.Equal(t, 100, stats.LinesNet)
	assert.Equal(t, map[string]int{"FEAT": 2, "FIX": 1}, stats.Tags)
	assert.Equal(t, map[string]schema.RepoBreakdown{
		"acme/api": {Commits: 2, NetLines: 140},
		"acme/web": {Commits: 1, NetLines: -40},
	}, stats.Repos)
	assert.Equal(t, "FEATURE_DEV", stats.DayType)
	assert.Equal(t, "✨", stats.DayTypeIcon)

	cl := CognitiveLoad(200, 3, 3)
	assert.InDelta(t, cl, stats.CognitiveLoad, 1e-9)
	assert.InDelta(t, (35.0+10.0)/cl, stats.ProductivityIndex, 1e-9)
	assert.Equal(t, 66, stats.CodingMinutes)
	assert.Equal(t, 66, stats.TestingMinutes)
}

func TestAnalyzeDayEmpty(t *testing.T) {
	stats := newTestAnalyzer().AnalyzeDay(context.Background(), day(25, 0), sampleCommits())

	assert.False(t, stats.Active())
	assert.Equal(t, 1.0, stats.CognitiveLoad)
	assert.Zero(t, stats.ProductivityIndex)
	assert.Equal(t, "MIXED", stats.DayType)
	assert.Equal(t, "📦", stats.DayTypeIcon)
	assert.Empty(t, stats.Tags)
}

func TestAnalyzeDayUsesDateLocation(t *testing.T) {
	rome := time.FixedZone("CEST", 2*60*60)
	late := commit("acme/api", "[FIX] late", time.Date(2025, 8, 20, 23, 30, 0, 0, time.UTC), 1, 0)

	a := newTestAnalyzer()
	assert.Equal(t, 0, a.AnalyzeDay(context.Background(), time.Date(2025, 8, 20, 0, 0, 0, 0, rome), []schema.CommitRecord{late}).TotalCommits)
	assert.Equal(t, 1, a.AnalyzeDay(context.Background(), time.Date(2025, 8, 21, 0, 0, 0, 0, rome), []schema.CommitRecord{late}).TotalCommits)
}

func TestAnalyzeWeek(t *testing.T) {
	week, days := newTestAnalyzer().AnalyzeWeek(context.Background(), day(18, 0), day(24, 0), sampleCommits())

	require.Len(t, days, 7)
	assert.Equal(t, 34, week.WeekNumber)
	assert.Equal(t, 4, week.TotalCommits)
	assert.Equal(t, 2, week.ActiveDays)
	assert.InDelta(t, 75.0, week.TagCoverage, 1e-9)
	assert.InDelta(t, 3.5+tags.UntaggedWeight, week.WeightedCommits, 1e-9)
	assert.Equal(t, 210, week.LinesTouched)
	assert.Equal(t, 100, week.LinesNet)
	assert.Equal(t, schema.RepoBreakdown{Commits: 2, NetLines: -40}, week.Repos["acme/web"])
	assert.InDelta(t, (days[2].CognitiveLoad+days[3].CognitiveLoad)/2, week.AvgCognitiveLoad, 1e-9)
	assert.InDelta(t, (days[2].ProductivityIndex+days[3].ProductivityIndex)/2, week.AvgProductivityIndex, 1e-9)
	assert.InDelta(t, 4*22.0/60, week.CodingHours, 1e-9)
	assert.Equal(t, "18-24 August 2025", week.Period)
}

func TestAnalyzeWeekWithoutCommits(t *testing.T) {
	week, days := newTestAnalyzer().AnalyzeWeek(context.Background(), day(4, 0), day(10, 0), nil)

	assert.Len(t, days, 7)
	assert.Zero(t, week.ActiveDays)
	assert.Equal(t, 1.0, week.AvgCognitiveLoad)
	assert.Zero(t, week.AvgProductivityIndex)
	assert.Zero(t, week.TagCoverage)
}

func TestDailyBreakdown(t *testing.T) {
	results, days := newTestAnalyzer().DailyBreakdown(context.Background(), time.UTC, sampleCommits())

	require.Len(t, results, 4)
	assert.Equal(t, "FEAT", results[0].Tag)
	assert.Equal(t, schema.UntaggedTag, results[3].Tag)

	require.Len(t, days, 2)
	assert.Equal(t, day(20, 0), days[0].Date)
	assert.Equal(t, 3, days[0].TotalCommits)
	assert.Equal(t, day(21, 0), days[1].Date)
	assert.Equal(t, map[string]int{schema.UntaggedTag: 1}, days[1].Tags)
}
