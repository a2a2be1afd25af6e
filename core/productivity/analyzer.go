// Package productivity aggregates categorized commits into daily and weekly
// productivity statistics.
package productivity

import (
	"context"
	"maps"
	"math"
	"slices"
	"time"

	"github.com/huangsam/devpulse/core/categorize"
	"github.com/huangsam/devpulse/core/tags"
	"github.com/huangsam/devpulse/schema"
	"go.uber.org/zap"
)

// MinutesPerCommit is the flat time estimate charged to every commit.
const MinutesPerCommit = 22

// Cognitive load bounds.
const (
	MinCognitiveLoad = 1.0
	MaxCognitiveLoad = 3.5
)

// Analyzer turns commits into DayStats and WeekStats.
type Analyzer struct {
	registry      *tags.Registry
	categorizer   *categorize.Categorizer
	allowExternal bool
	logger        *zap.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithExternal lets untagged commits escalate to the external classifier.
func WithExternal(allow bool) Option {
	return func(a *Analyzer) { a.allowExternal = allow }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Analyzer) {
		if l != nil {
			a.logger = l
		}
	}
}

// NewAnalyzer creates an Analyzer sharing the categorizer's registry.
func NewAnalyzer(categorizer *categorize.Categorizer, opts ...Option) *Analyzer {
	a := &Analyzer{
		registry:    categorizer.Registry(),
		categorizer: categorizer,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// taggedCommit pairs a commit with its resolved tag.
type taggedCommit struct {
	schema.CommitRecord
	Tag string
}

// Classify resolves one tag per commit, in input order.
func (a *Analyzer) Classify(ctx context.Context, commits []schema.CommitRecord) []schema.CategorizationResult {
	inputs := make([]categorize.Input, len(commits))
	for i, c := range commits {
		inputs[i] = categorize.InputFromCommit(c)
	}
	return a.categorizer.CategorizeBatch(ctx, inputs, a.allowExternal)
}

func (a *Analyzer) tag(ctx context.Context, commits []schema.CommitRecord) []taggedCommit {
	results := a.Classify(ctx, commits)
	out := make([]taggedCommit, len(commits))
	for i, c := range commits {
		out[i] = taggedCommit{CommitRecord: c, Tag: results[i].Tag}
	}
	return out
}

// AnalyzeDay aggregates the commits that fall on date's calendar day in
// date's location. Other commits are ignored.
func (a *Analyzer) AnalyzeDay(ctx context.Context, date time.Time, commits []schema.CommitRecord) schema.DayStats {
	day := schema.TruncateDay(date)
	var onDay []schema.CommitRecord
	for _, c := range commits {
		if schema.SameDay(day, c.Date) {
			onDay = append(onDay, c)
		}
	}
	return a.dayStats(day, a.tag(ctx, onDay))
}

// AnalyzeWeek aggregates every calendar day in [start, end] and returns the
// week summary with the per-day stats. The week number is taken from the
// ISO calendar of start.
func (a *Analyzer) AnalyzeWeek(ctx context.Context, start, end time.Time, commits []schema.CommitRecord) (schema.WeekStats, []schema.DayStats) {
	_, isoWeek := start.ISOWeek()
	byDay := a.groupByDay(ctx, start.Location(), commits)
	return a.weekStats(isoWeek, schema.TruncateDay(start), schema.TruncateDay(end), byDay)
}

// groupByDay tags commits once and buckets them by calendar day in loc.
func (a *Analyzer) groupByDay(ctx context.Context, loc *time.Location, commits []schema.CommitRecord) map[string][]taggedCommit {
	byDay := make(map[string][]taggedCommit)
	for _, tc := range a.tag(ctx, commits) {
		key := tc.Date.In(loc).Format(schema.DateLayout)
		byDay[key] = append(byDay[key], tc)
	}
	return byDay
}

// DailyBreakdown tags commits once and returns each commit's result in input
// order with the stats of every active calendar day in loc, oldest first.
func (a *Analyzer) DailyBreakdown(ctx context.Context, loc *time.Location, commits []schema.CommitRecord) ([]schema.CategorizationResult, []schema.DayStats) {
	results := a.Classify(ctx, commits)
	byDay := make(map[string][]taggedCommit)
	for i, c := range commits {
		key := c.Date.In(loc).Format(schema.DateLayout)
		byDay[key] = append(byDay[key], taggedCommit{CommitRecord: c, Tag: results[i].Tag})
	}

	keys := slices.Sorted(maps.Keys(byDay))
	days := make([]schema.DayStats, 0, len(keys))
	for _, key := range keys {
		date, err := time.ParseInLocation(schema.DateLayout, key, loc)
		if err != nil {
			continue
		}
		days = append(days, a.dayStats(date, byDay[key]))
	}
	return results, days
}

func (a *Analyzer) dayStats(date time.Time, commits []taggedCommit) schema.DayStats {
	stats := schema.DayStats{
		Date:          date,
		Repos:         map[string]schema.RepoBreakdown{},
		Tags:          map[string]int{},
		DayType:       tags.MixedDayType.Name,
		DayTypeIcon:   tags.MixedDayType.Icon,
		CognitiveLoad: MinCognitiveLoad,
	}
	if len(commits) == 0 {
		return stats
	}

	files := make(map[string]struct{})
	for _, c := range commits {
		stats.Tags[c.Tag]++
		stats.WeightedCommits += a.registry.Weight(c.Tag)
		stats.LinesAdded += c.Additions
		stats.LinesDeleted += c.Deletions

		rb := stats.Repos[c.Repository]
		rb.Commits++
		rb.NetLines += c.NetLines()
		stats.Repos[c.Repository] = rb

		for _, f := range c.FilesChanged {
			files[f] = struct{}{}
		}
	}

	stats.TotalCommits = len(commits)
	stats.FilesModified = len(files)
	stats.LinesNet = stats.LinesAdded - stats.LinesDeleted

	dt := tags.ClassifyDayType(stats.Tags)
	stats.DayType = dt.Name
	stats.DayTypeIcon = dt.Icon
	stats.CognitiveLoad = CognitiveLoad(stats.LinesTouched(), stats.FilesModified, stats.TotalCommits)
	stats.ProductivityIndex = ProductivityIndex(stats.WeightedCommits, stats.LinesNet, dt.Multiplier, stats.CognitiveLoad)
	stats.CodingMinutes = stats.TotalCommits * MinutesPerCommit
	stats.TestingMinutes = stats.TotalCommits * MinutesPerCommit
	return stats
}

func (a *Analyzer) weekStats(number int, start, end time.Time, byDay map[string][]taggedCommit) (schema.WeekStats, []schema.DayStats) {
	isoYear, isoWeek := start.ISOWeek()
	week := schema.WeekStats{
		WeekNumber: number,
		ISOYear:    isoYear,
		ISOWeek:    isoWeek,
		StartDate:  start,
		EndDate:    end,
		Period:     PeriodLabel(start, end),
		Repos:      map[string]schema.RepoBreakdown{},
	}

	var days []schema.DayStats
	var tagged int
	var sumCL, sumPI float64
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		day := a.dayStats(d, byDay[d.Format(schema.DateLayout)])
		days = append(days, day)

		for repo, rb := range day.Repos {
			acc := week.Repos[repo]
			acc.Commits += rb.Commits
			acc.NetLines += rb.NetLines
			week.Repos[repo] = acc
		}
		week.TotalCommits += day.TotalCommits
		week.WeightedCommits += day.WeightedCommits
		week.FilesModified += day.FilesModified
		week.LinesAdded += day.LinesAdded
		week.LinesDeleted += day.LinesDeleted
		week.LinesNet += day.LinesNet
		for tag, n := range day.Tags {
			if !tags.IsUntagged(tag) {
				tagged += n
			}
		}
		if day.Active() {
			week.ActiveDays++
			sumCL += day.CognitiveLoad
			sumPI += day.ProductivityIndex
		}
	}

	week.LinesTouched = week.LinesAdded + week.LinesDeleted
	week.AvgCognitiveLoad = MinCognitiveLoad
	if week.ActiveDays > 0 {
		week.AvgCognitiveLoad = sumCL / float64(week.ActiveDays)
		week.AvgProductivityIndex = sumPI / float64(week.ActiveDays)
	}
	if week.TotalCommits > 0 {
		week.TagCoverage = float64(tagged) / float64(week.TotalCommits) * 100
	}
	hours := float64(week.TotalCommits*MinutesPerCommit) / 60
	week.CodingHours = hours
	week.TestingHours = hours
	return week, days
}

// CognitiveLoad estimates the mental effort of a day on a log scale,
// clamped to [MinCognitiveLoad, MaxCognitiveLoad].
func CognitiveLoad(linesTouched, filesTouched, commits int) float64 {
	if commits == 0 {
		return MinCognitiveLoad
	}
	raw := math.Log(float64(linesTouched)+1) + math.Log(float64(filesTouched)+1) + math.Log(float64(commits)+1)
	return max(MinCognitiveLoad, min(MaxCognitiveLoad, 1+raw/6))
}

// ProductivityIndex scores a day. Net lines count by magnitude so removing
// code scores like adding it.
func ProductivityIndex(weighted float64, netLines int, multiplier, cognitiveLoad float64) float64 {
	if cognitiveLoad == 0 {
		cognitiveLoad = MinCognitiveLoad
	}
	base := weighted*10 + math.Abs(float64(netLines))/10
	return base * multiplier / cognitiveLoad
}
