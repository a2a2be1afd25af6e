package schema

import "time"

// RepoBreakdown holds per-repository totals inside a day or week.
type RepoBreakdown struct {
	Commits  int `json:"commits"`
	NetLines int `json:"net_lines"`
}

// DayStats is the aggregate for one calendar day.
type DayStats struct {
	Date              time.Time                `json:"date"`
	Repos             map[string]RepoBreakdown `json:"repos"`
	TotalCommits      int                      `json:"total_commits"`
	WeightedCommits   float64                  `json:"weighted_commits"`
	FilesModified     int                      `json:"files_modified"`
	LinesAdded        int                      `json:"lines_added"`
	LinesDeleted      int                      `json:"lines_deleted"`
	LinesNet          int                      `json:"lines_net"`
	Tags              map[string]int           `json:"tags"`
	DayType           string                   `json:"day_type"`
	DayTypeIcon       string                   `json:"day_type_icon"`
	CognitiveLoad     float64                  `json:"cognitive_load"`
	ProductivityIndex float64                  `json:"productivity_index"`
	CodingMinutes     int                      `json:"coding_minutes"`
	TestingMinutes    int                      `json:"testing_minutes"`
}

// Active reports whether the day has at least one commit.
func (d DayStats) Active() bool {
	return d.TotalCommits > 0
}

// LinesTouched returns added plus deleted lines.
func (d DayStats) LinesTouched() int {
	return d.LinesAdded + d.LinesDeleted
}

// WeekStats is the aggregate for one ISO week (or the part of it in range).
type WeekStats struct {
	WeekNumber           int                      `json:"week_number"`
	ISOYear              int                      `json:"iso_year"`
	ISOWeek              int                      `json:"iso_week"`
	StartDate            time.Time                `json:"start_date"`
	EndDate              time.Time                `json:"end_date"`
	Period               string                   `json:"period"`
	Description          string                   `json:"description"`
	Repos                map[string]RepoBreakdown `json:"repos"`
	TotalCommits         int                      `json:"total_commits"`
	WeightedCommits      float64                  `json:"weighted_commits"`
	FilesModified        int                      `json:"files_modified"`
	TagCoverage          float64                  `json:"tag_coverage"`
	LinesAdded           int                      `json:"lines_added"`
	LinesDeleted         int                      `json:"lines_deleted"`
	LinesNet             int                      `json:"lines_net"`
	LinesTouched         int                      `json:"lines_touched"`
	AvgCognitiveLoad     float64                  `json:"avg_cognitive_load"`
	AvgProductivityIndex float64                  `json:"avg_productivity_index"`
	ActiveDays           int                      `json:"active_days"`
	TestingHours         float64                  `json:"testing_hours"`
	CodingHours          float64                  `json:"coding_hours"`
}

// Report is the full multi-week result used by exporters.
type Report struct {
	Repositories []string    `json:"repositories"`
	Start        time.Time   `json:"start"`
	End          time.Time   `json:"end"`
	Weeks        []WeekStats `json:"weeks"`
	Days         []DayStats  `json:"days"`
	Totals       Totals      `json:"totals"`
}

// Totals are the summary-sheet figures over the whole report.
type Totals struct {
	Commits             int     `json:"commits"`
	WeightedCommits     float64 `json:"weighted_commits"`
	AvgTagCoverage      float64 `json:"avg_tag_coverage"`
	AvgProductivity     float64 `json:"avg_productivity"`
	LinesTouched        int     `json:"lines_touched"`
	LinesNet            int     `json:"lines_net"`
	TestingHours        float64 `json:"testing_hours"`
	CodingHours         float64 `json:"coding_hours"`
	ActiveDays          int     `json:"active_days"`
	ClassifiedCommits   int     `json:"classified_commits"`
	UnclassifiedCommits int     `json:"unclassified_commits"`
}
