package productivity

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/huangsam/devpulse/schema"
	"go.uber.org/zap"
)

// InProgressSuffix marks the week that contains today.
const InProgressSuffix = " (in progress)"

var weekDescriptions = map[int]string{
	1:  "Tag system introduction",
	2:  "Stabilization",
	3:  "Consolidation",
	4:  "Advanced development",
	5:  "Optimization",
	6:  "Feature completion",
	7:  "Testing and refinement",
	8:  "Advanced development",
	9:  "Production readiness",
	10: "PA/Enterprise development",
	11: "Scalability & Performance",
	12: "Final polish",
	13: "Quality assurance",
	14: "Deployment preparation",
	15: "User testing",
	16: "Performance tuning",
	17: "Security hardening",
	18: "Documentation",
	19: "Launch preparation",
	20: "Post-launch support",
	21: "Iteration & Improvement",
	22: "Feature expansion",
	23: "Platform optimization",
	24: "Enterprise integration",
}

// WeekDescription names the n-th week of a report.
func WeekDescription(n int) string {
	if d, ok := weekDescriptions[n]; ok {
		return d
	}
	return fmt.Sprintf("Development week %d", n)
}

// PeriodLabel renders a week range, e.g. "18-24 August 2025" or
// "25 August - 1 September 2025".
func PeriodLabel(start, end time.Time) string {
	switch {
	case start.Year() != end.Year():
		return fmt.Sprintf("%d %s %d - %d %s %d", start.Day(), start.Month(), start.Year(), end.Day(), end.Month(), end.Year())
	case start.Month() != end.Month():
		return fmt.Sprintf("%d %s - %d %s %d", start.Day(), start.Month(), end.Day(), end.Month(), end.Year())
	default:
		return fmt.Sprintf("%d-%d %s %d", start.Day(), end.Day(), end.Month(), end.Year())
	}
}

// GenerateReport splits [start, end] into Monday-aligned weeks, the first
// starting on the Monday on or before start and the last clamped to end.
// Commits are tagged once and bucketed by calendar day in start's location.
func (a *Analyzer) GenerateReport(ctx context.Context, commits []schema.CommitRecord, start, end, today time.Time) schema.Report {
	loc := start.Location()
	start = schema.TruncateDay(start)
	end = schema.TruncateDay(end.In(loc))
	today = schema.TruncateDay(today.In(loc))

	report := schema.Report{Start: start, End: end}
	byDay := a.groupByDay(ctx, loc, commits)

	monday := start.AddDate(0, 0, -daysSinceMonday(start))
	for n := 1; !monday.After(end); n++ {
		weekEnd := monday.AddDate(0, 0, 6)
		if weekEnd.After(end) {
			weekEnd = end
		}

		week, days := a.weekStats(n, monday, weekEnd, byDay)
		week.Description = WeekDescription(n)
		if !today.Before(monday) && !today.After(weekEnd) {
			week.Description += InProgressSuffix
		}

		report.Weeks = append(report.Weeks, week)
		report.Days = append(report.Days, days...)
		monday = monday.AddDate(0, 0, 7)
	}

	report.Repositories = reportRepositories(commits)
	report.Totals = computeTotals(report.Weeks, report.Days)
	a.logger.Debug("report generated",
		zap.Int("weeks", len(report.Weeks)),
		zap.Int("commits", report.Totals.Commits))
	return report
}

func daysSinceMonday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

func reportRepositories(commits []schema.CommitRecord) []string {
	seen := make(map[string]struct{})
	var repos []string
	for _, c := range commits {
		if _, ok := seen[c.Repository]; !ok {
			seen[c.Repository] = struct{}{}
			repos = append(repos, c.Repository)
		}
	}
	sort.Strings(repos)
	return repos
}

func computeTotals(weeks []schema.WeekStats, days []schema.DayStats) schema.Totals {
	var t schema.Totals
	var coverage float64
	for _, w := range weeks {
		t.Commits += w.TotalCommits
		t.WeightedCommits += w.WeightedCommits
		t.LinesTouched += w.LinesTouched
		t.LinesNet += w.LinesNet
		t.TestingHours += w.TestingHours
		t.CodingHours += w.CodingHours
		coverage += w.TagCoverage
	}
	if len(weeks) > 0 {
		t.AvgTagCoverage = coverage / float64(len(weeks))
	}

	var productivity float64
	for _, d := range days {
		if !d.Active() {
			continue
		}
		t.ActiveDays++
		productivity += d.ProductivityIndex
		for tag, n := range d.Tags {
			if tag == schema.UntaggedTag {
				t.UnclassifiedCommits += n
			} else {
				t.ClassifiedCommits += n
			}
		}
	}
	if t.ActiveDays > 0 {
		t.AvgProductivity = productivity / float64(t.ActiveDays)
	}
	return t
}

// TargetDay picks the day a summary focuses on: the requested date when set,
// else today when it is in range, else the last active day. The second result
// is false when nothing qualifies.
func TargetDay(days []schema.DayStats, requested *time.Time, today time.Time) (schema.DayStats, bool) {
	if len(days) == 0 {
		return schema.DayStats{}, false
	}
	if requested != nil {
		for _, d := range days {
			if schema.SameDay(d.Date, *requested) {
				return d, true
			}
		}
		return days[0], true
	}
	for _, d := range days {
		if schema.SameDay(d.Date, today) {
			return d, true
		}
	}
	for i := len(days) - 1; i >= 0; i-- {
		if days[i].Active() {
			return days[i], true
		}
	}
	return schema.DayStats{}, false
}
