// Package parquet provides data structures and functions for exporting
// devpulse analytics to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/huangsam/devpulse/schema"
	"github.com/parquet-go/parquet-go"
)

// Commit maps to one row of the commits table.
type Commit struct {
	Hash       string    `parquet:"hash,snappy"`
	RepoName   string    `parquet:"repo_name,snappy,dict"`
	Author     string    `parquet:"author,snappy,dict"`
	Date       time.Time `parquet:"date,snappy"`
	Message    string    `parquet:"message,snappy"`
	Tags       string    `parquet:"tags,snappy"`
	CanonicTag string    `parquet:"canonic_tag,snappy,dict"`
	Method     string    `parquet:"method,snappy,dict"`
	Confidence float64   `parquet:"confidence,snappy"`
	Weight     float64   `parquet:"weight,snappy"`
	NetLines   int32     `parquet:"net_lines,snappy"`

	// Analysis is the raw JSON document, kept for fields not flattened above
	Analysis *string `parquet:"analysis,optional,snappy"`
}

// DailyStat maps to one row of the daily_stats table.
type DailyStat struct {
	Date              time.Time `parquet:"date,snappy"`
	RepoName          string    `parquet:"repo_name,snappy,dict"`
	TotalCommits      int32     `parquet:"total_commits,snappy"`
	WeightedCommits   float64   `parquet:"weighted_commits,snappy"`
	LinesAdded        int32     `parquet:"lines_added,snappy"`
	LinesDeleted      int32     `parquet:"lines_deleted,snappy"`
	NetLines          int32     `parquet:"net_lines,snappy"`
	FilesTouched      int32     `parquet:"files_touched,snappy"`
	ProductivityScore float64   `parquet:"productivity_score,snappy"`
	CognitiveLoad     float64   `parquet:"cognitive_load,snappy"`
	CodingHours       float64   `parquet:"coding_hours,snappy"`
	TestingHours      float64   `parquet:"testing_hours,snappy"`
	DayType           string    `parquet:"day_type,snappy,dict"`

	// TagsBreakdown is stored as a map column so readers keep per-tag counts
	TagsBreakdown map[string]int32 `parquet:"tags_breakdown"`
}

// WeeklyStat maps to one row of the weekly_stats table.
type WeeklyStat struct {
	Year              int32   `parquet:"year,snappy"`
	Week              int32   `parquet:"week,snappy"`
	RepoName          string  `parquet:"repo_name,snappy,dict"`
	ProductivityScore float64 `parquet:"productivity_score,snappy"`
	TotalCommits      int32   `parquet:"total_commits,snappy"`
	WeightedCommits   float64 `parquet:"weighted_commits,snappy"`
	LinesTouched      int32   `parquet:"lines_touched,snappy"`
}

// Write writes records to a Parquet file whose schema is inferred from T.
func Write[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := WriteTo(file, data); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// WriteTo streams records as one Parquet file into w.
func WriteTo[T any](w io.Writer, data []T) error {
	writer := parquet.NewGenericWriter[T](w)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// Read loads every record of a Parquet file written by Write.
func Read[T any](inputPath string) ([]T, error) {
	file, err := os.Open(inputPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()

	reader := parquet.NewGenericReader[T](file)
	defer func() { _ = reader.Close() }()

	rows := make([]T, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to read parquet file: %w", err)
	}
	return rows[:n], nil
}

// ConvertCommits flattens stored commits and their analysis documents.
// Rows whose analysis cannot be decoded keep only the raw JSON.
func ConvertCommits(records []schema.StoredCommit) []Commit {
	result := make([]Commit, len(records))
	for i, r := range records {
		c := Commit{
			Hash:     r.Hash,
			RepoName: r.RepoName,
			Author:   r.Author,
			Date:     r.Date,
			Message:  r.Message,
			Tags:     r.Tags,
		}
		if r.Analysis != "" {
			raw := r.Analysis
			c.Analysis = &raw
			if a, err := schema.DecodeCommitAnalysis(raw); err == nil {
				c.CanonicTag = a.CanonicTag
				c.Method = string(a.Method)
				c.Confidence = a.Confidence
				c.Weight = a.Weight
				c.NetLines = int32(a.NetLines)
			}
		}
		result[i] = c
	}
	return result
}

// ConvertDailyStats converts daily rows for Parquet export.
func ConvertDailyStats(records []schema.DailyStatsRow) []DailyStat {
	result := make([]DailyStat, len(records))
	for i, r := range records {
		breakdown := make(map[string]int32, len(r.TagsBreakdown))
		for tag, n := range r.TagsBreakdown {
			breakdown[tag] = int32(n)
		}
		result[i] = DailyStat{
			Date:              r.Date,
			RepoName:          r.RepoName,
			TotalCommits:      int32(r.TotalCommits),
			WeightedCommits:   r.WeightedCommits,
			LinesAdded:        int32(r.LinesAdded),
			LinesDeleted:      int32(r.LinesDeleted),
			NetLines:          int32(r.NetLines),
			FilesTouched:      int32(r.FilesTouched),
			ProductivityScore: r.ProductivityScore,
			CognitiveLoad:     r.CognitiveLoad,
			CodingHours:       r.CodingHours,
			TestingHours:      r.TestingHours,
			DayType:           r.DayType,
			TagsBreakdown:     breakdown,
		}
	}
	return result
}

// ConvertWeeklyStats converts weekly rows for Parquet export.
func ConvertWeeklyStats(records []schema.WeeklyStatsRow) []WeeklyStat {
	result := make([]WeeklyStat, len(records))
	for i, r := range records {
		result[i] = WeeklyStat{
			Year:              int32(r.Year),
			Week:              int32(r.Week),
			RepoName:          r.RepoName,
			ProductivityScore: r.ProductivityScore,
			TotalCommits:      int32(r.Metrics.TotalCommits),
			WeightedCommits:   r.Metrics.WeightedCommits,
			LinesTouched:      int32(r.Metrics.LinesTouched),
		}
	}
	return result
}

// ConvertDayStats flattens report days into one row per (day, repository).
// Per-repository rows carry only commit and line counts; the day-level
// figures are attached to a row named "*".
func ConvertDayStats(days []schema.DayStats) []DailyStat {
	var result []DailyStat
	for _, d := range days {
		if !d.Active() {
			continue
		}
		breakdown := make(map[string]int32, len(d.Tags))
		for tag, n := range d.Tags {
			breakdown[tag] = int32(n)
		}
		result = append(result, DailyStat{
			Date:              d.Date,
			RepoName:          AllRepos,
			TotalCommits:      int32(d.TotalCommits),
			WeightedCommits:   d.WeightedCommits,
			LinesAdded:        int32(d.LinesAdded),
			LinesDeleted:      int32(d.LinesDeleted),
			NetLines:          int32(d.LinesNet),
			FilesTouched:      int32(d.FilesModified),
			ProductivityScore: d.ProductivityIndex,
			CognitiveLoad:     d.CognitiveLoad,
			CodingHours:       float64(d.CodingMinutes) / 60,
			TestingHours:      float64(d.TestingMinutes) / 60,
			DayType:           d.DayType,
			TagsBreakdown:     breakdown,
		})
		repos := make([]string, 0, len(d.Repos))
		for repo := range d.Repos {
			repos = append(repos, repo)
		}
		sort.Strings(repos)
		for _, repo := range repos {
			b := d.Repos[repo]
			result = append(result, DailyStat{
				Date:         d.Date,
				RepoName:     repo,
				TotalCommits: int32(b.Commits),
				NetLines:     int32(b.NetLines),
			})
		}
	}
	return result
}

// AllRepos names the aggregate row of a day in ConvertDayStats.
const AllRepos = "*"
