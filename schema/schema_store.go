package schema

import (
	"encoding/json"
	"time"
)

// StoredCommit is a row of the commits table.
type StoredCommit struct {
	Hash     string    `json:"hash"`
	RepoName string    `json:"repo_name"`
	Author   string    `json:"author"`
	Date     time.Time `json:"date"`
	Message  string    `json:"message"`
	Stats    string    `json:"stats"`
	Tags     string    `json:"tags"`
	Analysis string    `json:"analysis"`
}

// CommitAnalysis is the JSON document stored alongside each commit.
type CommitAnalysis struct {
	Tags       []string `json:"tags"`
	Weight     float64  `json:"weight"`
	NetLines   int      `json:"net_lines"`
	CanonicTag string   `json:"canonic_tag"`
	Method     Method   `json:"method"`
	Confidence float64  `json:"confidence"`
}

// DailyStatsRow is a row of the daily_stats table, keyed by (date, repo).
type DailyStatsRow struct {
	Date              time.Time      `json:"date"`
	RepoName          string         `json:"repo_name"`
	TotalCommits      int            `json:"total_commits"`
	WeightedCommits   float64        `json:"weighted_commits"`
	LinesAdded        int            `json:"lines_added"`
	LinesDeleted      int            `json:"lines_deleted"`
	NetLines          int            `json:"net_lines"`
	ProductivityScore float64        `json:"productivity_score"`
	FilesTouched      int            `json:"files_touched"`
	DayType           string         `json:"day_type"`
	DayTypeIcon       string         `json:"day_type_icon"`
	CognitiveLoad     float64        `json:"cognitive_load"`
	CodingHours       float64        `json:"coding_hours"`
	TestingHours      float64        `json:"testing_hours"`
	TagsBreakdown     map[string]int `json:"tags_breakdown"`
}

// WeeklyMetrics is the JSON document stored with each weekly row.
type WeeklyMetrics struct {
	WeightedCommits float64 `json:"weighted_commits"`
	LinesTouched    int     `json:"lines_touched"`
	TotalCommits    int     `json:"total_commits"`
}

// WeeklyStatsRow is a row of the weekly_stats table, keyed by (year, week, repo).
type WeeklyStatsRow struct {
	Year              int           `json:"year"`
	Week              int           `json:"week"`
	RepoName          string        `json:"repo_name"`
	ProductivityScore float64       `json:"productivity_score"`
	Metrics           WeeklyMetrics `json:"metrics"`
}

// WeeklySummary aggregates weekly rows across repositories.
type WeeklySummary struct {
	Year              int     `json:"year"`
	Week              int     `json:"week"`
	ProductivityScore float64 `json:"productivity_score"`
	TotalCommits      int     `json:"total_commits"`
	WeightedCommits   float64 `json:"weighted_commits"`
	LinesTouched      int     `json:"lines_touched"`
	Repos             int     `json:"repos"`
}

// DailyDetail holds the per-repository rows of one day plus their summary.
type DailyDetail struct {
	Date    time.Time       `json:"date"`
	Repos   []DailyStatsRow `json:"repos"`
	Summary DailySummary    `json:"summary"`
}

// DailySummary folds the per-repository rows of one day.
type DailySummary struct {
	TotalCommits      int     `json:"total_commits"`
	WeightedCommits   float64 `json:"weighted_commits"`
	LinesAdded        int     `json:"lines_added"`
	LinesDeleted      int     `json:"lines_deleted"`
	NetLines          int     `json:"net_lines"`
	ProductivityScore float64 `json:"productivity_score"`
	FilesTouched      int     `json:"files_touched"`
	CognitiveLoad     float64 `json:"cognitive_load"`
	CodingHours       float64 `json:"coding_hours"`
	TestingHours      float64 `json:"testing_hours"`
	DayType           string  `json:"day_type"`
	DayTypeIcon       string  `json:"day_type_icon"`
}

// DecodeCommitAnalysis parses the analysis column of a stored commit.
func DecodeCommitAnalysis(raw string) (CommitAnalysis, error) {
	var a CommitAnalysis
	err := json.Unmarshal([]byte(raw), &a)
	return a, err
}
