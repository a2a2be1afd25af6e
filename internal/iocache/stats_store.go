package iocache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/huangsam/devpulse/core/tags"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
)

// Analytics tables managed by the stats migrations.
const (
	commitsTable     = "commits"
	dailyStatsTable  = "daily_stats"
	weeklyStatsTable = "weekly_stats"
)

var statsTables = []string{commitsTable, dailyStatsTable, weeklyStatsTable}

var (
	commitColumns = []string{"hash", "repo_name", "author", "date", "message", "stats", "tags", "analysis"}
	dailyColumns  = []string{
		"date", "repo_name", "total_commits", "weighted_commits", "lines_added", "lines_deleted",
		"net_lines", "productivity_score", "tags_breakdown", "files_touched", "day_type",
		"day_type_icon", "cognitive_load", "coding_hours", "testing_hours",
	}
	weeklyColumns = []string{"year", "week", "repo_name", "productivity_score", "metrics"}
)

// StatsStoreImpl persists commits and their daily and weekly aggregates.
type StatsStoreImpl struct {
	db      *sql.DB
	backend schema.DatabaseBackend
	connStr string
}

var _ contract.StatsStore = &StatsStoreImpl{} // Compile-time check

// NewStatsStore brings the schema to the latest version and opens the store.
// NoneBackend yields a store that accepts writes and returns nothing.
func NewStatsStore(backend schema.DatabaseBackend, connStr string) (*StatsStoreImpl, error) {
	if backend == schema.NoneBackend {
		return &StatsStoreImpl{backend: backend}, nil
	}
	if _, ok := schema.ValidStatsBackends[backend]; !ok {
		return nil, fmt.Errorf("unsupported stats backend: %s", backend)
	}

	if err := MigrateStats(backend, connStr, LatestVersion, nopWriter{}); err != nil {
		return nil, err
	}

	db, err := openDB(backend, connStr, GetStatsDBFilePath())
	if err != nil {
		return nil, err
	}
	return &StatsStoreImpl{db: db, backend: backend, connStr: connStr}, nil
}

type nopWriter struct{}

func (nopWriter) Write(p []byte) (int, error) { return len(p), nil }

func (s *StatsStoreImpl) disabled() bool {
	return s.db == nil
}

func (s *StatsStoreImpl) q(query string) string {
	return rebind(s.backend, query)
}

// UpsertCommits inserts commits or refreshes their stats and analysis.
func (s *StatsStoreImpl) UpsertCommits(ctx context.Context, commits []schema.StoredCommit) error {
	if s.disabled() || len(commits) == 0 {
		return nil
	}
	query := upsertQuery(s.backend, commitsTable, commitColumns,
		[]string{"hash", "repo_name"}, []string{"stats", "tags", "analysis"})

	return s.inTx(ctx, query, len(commits), func(stmt *sql.Stmt, i int) error {
		c := commits[i]
		_, err := stmt.ExecContext(ctx, c.Hash, c.RepoName, c.Author, formatTime(c.Date),
			c.Message, orJSON(c.Stats, "{}"), orJSON(c.Tags, "[]"), orJSON(c.Analysis, "{}"))
		return err
	})
}

// UpsertDailyStats writes one row per (date, repo).
func (s *StatsStoreImpl) UpsertDailyStats(ctx context.Context, rows []schema.DailyStatsRow) error {
	if s.disabled() || len(rows) == 0 {
		return nil
	}
	query := upsertQuery(s.backend, dailyStatsTable, dailyColumns,
		[]string{"date", "repo_name"}, dailyColumns[2:])

	return s.inTx(ctx, query, len(rows), func(stmt *sql.Stmt, i int) error {
		r := rows[i]
		breakdown, err := json.Marshal(nonNilMap(r.TagsBreakdown))
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, r.Date.Format(schema.DateLayout), r.RepoName,
			r.TotalCommits, r.WeightedCommits, r.LinesAdded, r.LinesDeleted, r.NetLines,
			r.ProductivityScore, string(breakdown), r.FilesTouched, r.DayType, r.DayTypeIcon,
			r.CognitiveLoad, r.CodingHours, r.TestingHours)
		return err
	})
}

// UpsertWeeklyStats writes one row per (year, week, repo).
func (s *StatsStoreImpl) UpsertWeeklyStats(ctx context.Context, rows []schema.WeeklyStatsRow) error {
	if s.disabled() || len(rows) == 0 {
		return nil
	}
	query := upsertQuery(s.backend, weeklyStatsTable, weeklyColumns,
		[]string{"year", "week", "repo_name"}, []string{"productivity_score", "metrics"})

	return s.inTx(ctx, query, len(rows), func(stmt *sql.Stmt, i int) error {
		r := rows[i]
		metrics, err := json.Marshal(r.Metrics)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, r.Year, r.Week, r.RepoName, r.ProductivityScore, string(metrics))
		return err
	})
}

// inTx prepares query once and executes it n times inside one transaction.
func (s *StatsStoreImpl) inTx(ctx context.Context, query string, n int, exec func(*sql.Stmt, int) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range n {
		if err := exec(stmt, i); err != nil {
			return fmt.Errorf("failed to upsert row %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// WeeklySummaries returns weeks summed across repositories, newest first.
func (s *StatsStoreImpl) WeeklySummaries(ctx context.Context, limit int) ([]schema.WeeklySummary, error) {
	rows, err := s.ListWeeklyStats(ctx)
	if err != nil {
		return nil, err
	}

	var out []schema.WeeklySummary
	index := map[[2]int]int{}
	// Walk newest first so the limit keeps the most recent weeks.
	for i := len(rows) - 1; i >= 0; i-- {
		r := rows[i]
		key := [2]int{r.Year, r.Week}
		pos, ok := index[key]
		if !ok {
			if limit > 0 && len(out) == limit {
				continue
			}
			pos = len(out)
			index[key] = pos
			out = append(out, schema.WeeklySummary{Year: r.Year, Week: r.Week})
		}
		sum := &out[pos]
		sum.ProductivityScore += r.ProductivityScore
		sum.TotalCommits += r.Metrics.TotalCommits
		sum.WeightedCommits += r.Metrics.WeightedCommits
		sum.LinesTouched += r.Metrics.LinesTouched
		sum.Repos++
	}
	return out, nil
}

// DailyDetail returns the rows of one day ordered by productivity, plus a summary.
func (s *StatsStoreImpl) DailyDetail(ctx context.Context, date time.Time) (schema.DailyDetail, error) {
	day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	detail := schema.DailyDetail{Date: day}
	if s.disabled() {
		detail.Summary = summarizeDay(nil)
		return detail, nil
	}

	rows, err := s.queryDaily(ctx, "WHERE date = ? ORDER BY productivity_score DESC, repo_name", day.Format(schema.DateLayout))
	if err != nil {
		return detail, err
	}
	detail.Repos = rows
	detail.Summary = summarizeDay(rows)
	return detail, nil
}

// summarizeDay folds per-repository rows. The day type is recomputed from the
// merged tag histogram rather than picked from one repository.
func summarizeDay(rows []schema.DailyStatsRow) schema.DailySummary {
	var sum schema.DailySummary
	merged := map[string]int{}
	for _, r := range rows {
		sum.TotalCommits += r.TotalCommits
		sum.WeightedCommits += r.WeightedCommits
		sum.LinesAdded += r.LinesAdded
		sum.LinesDeleted += r.LinesDeleted
		sum.NetLines += r.NetLines
		sum.ProductivityScore += r.ProductivityScore
		sum.FilesTouched += r.FilesTouched
		sum.CognitiveLoad += r.CognitiveLoad
		sum.CodingHours += r.CodingHours
		sum.TestingHours += r.TestingHours
		for tag, n := range r.TagsBreakdown {
			merged[tag] += n
		}
	}
	if len(rows) > 0 {
		sum.CognitiveLoad /= float64(len(rows))
	}
	dt := tags.ClassifyDayType(merged)
	sum.DayType, sum.DayTypeIcon = dt.Name, dt.Icon
	return sum
}

// RawCommits returns stored commits, newest first.
func (s *StatsStoreImpl) RawCommits(ctx context.Context, limit int) ([]schema.StoredCommit, error) {
	if s.disabled() {
		return nil, nil
	}
	query := "SELECT hash, repo_name, author, date, message, stats, tags, analysis FROM commits ORDER BY date DESC, hash"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query commits: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.StoredCommit
	for rows.Next() {
		var (
			c               schema.StoredCommit
			author, message sql.NullString
			date            string
		)
		if err := rows.Scan(&c.Hash, &c.RepoName, &author, &date, &message, &c.Stats, &c.Tags, &c.Analysis); err != nil {
			return nil, fmt.Errorf("failed to scan commit: %w", err)
		}
		if c.Date, err = parseTime(date); err != nil {
			return nil, fmt.Errorf("commit %s has invalid date %q: %w", c.Hash, date, err)
		}
		c.Author, c.Message = author.String, message.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListDailyStats returns every daily row ordered by date and repo.
func (s *StatsStoreImpl) ListDailyStats(ctx context.Context) ([]schema.DailyStatsRow, error) {
	if s.disabled() {
		return nil, nil
	}
	return s.queryDaily(ctx, "ORDER BY date, repo_name")
}

func (s *StatsStoreImpl) queryDaily(ctx context.Context, clause string, args ...any) ([]schema.DailyStatsRow, error) {
	query := fmt.Sprintf("SELECT %s FROM daily_stats %s", strings.Join(dailyColumns, ", "), clause)
	rows, err := s.db.QueryContext(ctx, s.q(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.DailyStatsRow
	for rows.Next() {
		var (
			r                schema.DailyStatsRow
			date, breakdown  string
			dayType, dayIcon sql.NullString
		)
		if err := rows.Scan(&date, &r.RepoName, &r.TotalCommits, &r.WeightedCommits, &r.LinesAdded,
			&r.LinesDeleted, &r.NetLines, &r.ProductivityScore, &breakdown, &r.FilesTouched,
			&dayType, &dayIcon, &r.CognitiveLoad, &r.CodingHours, &r.TestingHours); err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		if r.Date, err = time.Parse(schema.DateLayout, date); err != nil {
			return nil, fmt.Errorf("daily row has invalid date %q: %w", date, err)
		}
		if err := json.Unmarshal([]byte(breakdown), &r.TagsBreakdown); err != nil {
			return nil, fmt.Errorf("daily row %s/%s has invalid tags breakdown: %w", date, r.RepoName, err)
		}
		r.DayType, r.DayTypeIcon = dayType.String, dayIcon.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListWeeklyStats returns every weekly row ordered by year, week and repo.
func (s *StatsStoreImpl) ListWeeklyStats(ctx context.Context) ([]schema.WeeklyStatsRow, error) {
	if s.disabled() {
		return nil, nil
	}
	query := "SELECT year, week, repo_name, productivity_score, metrics FROM weekly_stats ORDER BY year, week, repo_name"
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query weekly stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []schema.WeeklyStatsRow
	for rows.Next() {
		var (
			r       schema.WeeklyStatsRow
			metrics string
		)
		if err := rows.Scan(&r.Year, &r.Week, &r.RepoName, &r.ProductivityScore, &metrics); err != nil {
			return nil, fmt.Errorf("failed to scan weekly stats: %w", err)
		}
		if err := json.Unmarshal([]byte(metrics), &r.Metrics); err != nil {
			return nil, fmt.Errorf("weekly row %d-W%02d/%s has invalid metrics: %w", r.Year, r.Week, r.RepoName, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Reset empties all analytics tables. The schema is kept.
func (s *StatsStoreImpl) Reset(ctx context.Context) error {
	if s.disabled() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, table := range statsTables {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+quoteTableName(table, s.backend)); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	return tx.Commit()
}

// GetStatus returns status information about the stats store.
func (s *StatsStoreImpl) GetStatus() (schema.StatsStatus, error) {
	status := schema.StatsStatus{Backend: string(s.backend), TableSizes: map[string]int64{}}
	if s.disabled() {
		return status, nil
	}
	if err := s.db.Ping(); err != nil {
		return status, nil
	}
	status.Connected = true

	ctx := context.Background()
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM commits", &status.TotalCommits},
		{"SELECT COUNT(DISTINCT date) FROM daily_stats", &status.TotalDays},
		{"SELECT COUNT(*) FROM (SELECT DISTINCT year, week FROM weekly_stats) w", &status.TotalWeeks},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return status, fmt.Errorf("failed to count rows: %w", err)
		}
	}

	if status.TotalCommits > 0 {
		var first, last string
		if err := s.db.QueryRowContext(ctx, "SELECT MIN(date), MAX(date) FROM commits").Scan(&first, &last); err != nil {
			return status, fmt.Errorf("failed to read commit range: %w", err)
		}
		status.FirstCommitAt, _ = parseTime(first)
		status.LastCommitAt, _ = parseTime(last)
	}

	if s.backend == schema.SQLiteBackend {
		if size, err := databaseSize(ctx, s.db); err == nil {
			status.TableSizes["database"] = size
		}
		return status, nil
	}
	for _, table := range statsTables {
		if size, err := tableSize(ctx, s.db, s.backend, s.connStr, table); err == nil {
			status.TableSizes[table] = size
		}
	}
	return status, nil
}

// Close closes the underlying connection.
func (s *StatsStoreImpl) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func orJSON(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func nonNilMap(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}
