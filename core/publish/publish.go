// Package publish writes commits and their daily and weekly aggregates to
// the stats store.
package publish

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/devpulse/core/productivity"
	"github.com/huangsam/devpulse/core/tags"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// CommitFetcher returns the commits of one repository within a window and
// reports any fetch failure.
type CommitFetcher interface {
	FetchRepository(ctx context.Context, repo string, since, until time.Time) ([]schema.CommitRecord, error)
}

// Publisher fetches each repository and upserts its rows.
type Publisher struct {
	fetcher  CommitFetcher
	analyzer *productivity.Analyzer
	registry *tags.Registry
	store    contract.StatsStore
	logger   *zap.Logger
	workers  int
}

// Result summarizes one publishing run.
type Result struct {
	RunID        string   `json:"run_id"`
	Repositories []string `json:"repositories"`
	Failed       []string `json:"failed,omitempty"`
	Commits      int      `json:"commits"`
	DailyRows    int      `json:"daily_rows"`
	WeeklyRows   int      `json:"weekly_rows"`
}

// NewPublisher creates a Publisher.
func NewPublisher(fetcher CommitFetcher, analyzer *productivity.Analyzer, registry *tags.Registry, store contract.StatsStore, logger *zap.Logger, workers int) *Publisher {
	return &Publisher{
		fetcher:  fetcher,
		analyzer: analyzer,
		registry: registry,
		store:    store,
		logger:   contract.OrNop(logger),
		workers:  max(workers, 1),
	}
}

// Run publishes every repository independently. A repository whose fetch
// or writes fail is reported in Result.Failed; a rate limit aborts the run.
func (p *Publisher) Run(ctx context.Context, repos []string, since, until time.Time) (Result, error) {
	res := Result{RunID: uuid.NewString(), Repositories: repos}
	logger := p.logger.With(zap.String("run_id", res.RunID))
	logger.Info("publishing", zap.Strings("repos", repos), zap.Time("since", since), zap.Time("until", until))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for _, repo := range repos {
		g.Go(func() error {
			n, err := p.publishRepository(gctx, repo, since, until)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if contract.IsRateLimit(err) || gctx.Err() != nil {
					return err
				}
				logger.Error("publish failed", zap.String("repo", repo), zap.Error(err))
				res.Failed = append(res.Failed, repo)
				return nil
			}
			res.Commits += n.commits
			res.DailyRows += n.daily
			res.WeeklyRows += n.weekly
			logger.Info("repository published",
				zap.String("repo", repo),
				zap.Int("commits", n.commits),
				zap.Int("days", n.daily),
				zap.Int("weeks", n.weekly))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return res, err
	}
	slices.Sort(res.Failed)
	return res, nil
}

type counts struct {
	commits, daily, weekly int
}

func (p *Publisher) publishRepository(ctx context.Context, repo string, since, until time.Time) (counts, error) {
	commits, err := p.fetcher.FetchRepository(ctx, repo, since, until)
	if err != nil {
		return counts{}, err
	}
	if len(commits) == 0 {
		return counts{}, nil
	}

	results, days := p.analyzer.DailyBreakdown(ctx, since.Location(), commits)

	stored, err := p.storedCommits(commits, results)
	if err != nil {
		return counts{}, err
	}
	if err := p.store.UpsertCommits(ctx, stored); err != nil {
		return counts{}, fmt.Errorf("upsert commits: %w", err)
	}

	daily := DailyRows(repo, days)
	if err := p.store.UpsertDailyStats(ctx, daily); err != nil {
		return counts{}, fmt.Errorf("upsert daily stats: %w", err)
	}

	weekly := WeeklyRows(repo, days)
	if err := p.store.UpsertWeeklyStats(ctx, weekly); err != nil {
		return counts{}, fmt.Errorf("upsert weekly stats: %w", err)
	}
	return counts{commits: len(stored), daily: len(daily), weekly: len(weekly)}, nil
}

type commitStats struct {
	Additions int `json:"additions"`
	Deletions int `json:"deletions"`
	Total     int `json:"total"`
}

func (p *Publisher) storedCommits(commits []schema.CommitRecord, results []schema.CategorizationResult) ([]schema.StoredCommit, error) {
	out := make([]schema.StoredCommit, 0, len(commits))
	for i, c := range commits {
		res := results[i]
		tagList := []string{}
		if !res.IsFallback() {
			tagList = append(tagList, res.Tag)
		}
		analysis := schema.CommitAnalysis{
			Tags:       tagList,
			Weight:     p.registry.Weight(res.Tag),
			NetLines:   c.NetLines(),
			CanonicTag: res.Tag,
			Method:     res.Method,
			Confidence: res.Confidence,
		}

		statsJSON, err := json.Marshal(commitStats{Additions: c.Additions, Deletions: c.Deletions, Total: c.TotalChanges()})
		if err != nil {
			return nil, err
		}
		tagsJSON, err := json.Marshal(tagList)
		if err != nil {
			return nil, err
		}
		analysisJSON, err := json.Marshal(analysis)
		if err != nil {
			return nil, err
		}

		out = append(out, schema.StoredCommit{
			Hash:     c.SHA,
			RepoName: c.Repository,
			Author:   c.Author,
			Date:     c.Date,
			Message:  c.Message,
			Stats:    string(statsJSON),
			Tags:     string(tagsJSON),
			Analysis: string(analysisJSON),
		})
	}
	return out, nil
}

// DailyRows converts the active days of one repository into table rows.
func DailyRows(repo string, days []schema.DayStats) []schema.DailyStatsRow {
	rows := make([]schema.DailyStatsRow, 0, len(days))
	for _, d := range days {
		if !d.Active() {
			continue
		}
		rows = append(rows, schema.DailyStatsRow{
			Date:              d.Date,
			RepoName:          repo,
			TotalCommits:      d.TotalCommits,
			WeightedCommits:   d.WeightedCommits,
			LinesAdded:        d.LinesAdded,
			LinesDeleted:      d.LinesDeleted,
			NetLines:          d.LinesNet,
			ProductivityScore: d.ProductivityIndex,
			FilesTouched:      d.FilesModified,
			DayType:           d.DayType,
			DayTypeIcon:       d.DayTypeIcon,
			CognitiveLoad:     d.CognitiveLoad,
			CodingHours:       float64(d.CodingMinutes) / 60,
			TestingHours:      float64(d.TestingMinutes) / 60,
			TagsBreakdown:     d.Tags,
		})
	}
	return rows
}

// WeeklyRows groups active days by ISO week. The productivity score is the
// mean productivity index of the week's active days.
func WeeklyRows(repo string, days []schema.DayStats) []schema.WeeklyStatsRow {
	type key struct{ year, week int }
	type acc struct {
		row  schema.WeeklyStatsRow
		sum  float64
		days int
	}

	byWeek := make(map[key]*acc)
	for _, d := range days {
		if !d.Active() {
			continue
		}
		y, w := d.Date.ISOWeek()
		a, ok := byWeek[key{y, w}]
		if !ok {
			a = &acc{row: schema.WeeklyStatsRow{Year: y, Week: w, RepoName: repo}}
			byWeek[key{y, w}] = a
		}
		a.sum += d.ProductivityIndex
		a.days++
		a.row.Metrics.TotalCommits += d.TotalCommits
		a.row.Metrics.WeightedCommits += d.WeightedCommits
		a.row.Metrics.LinesTouched += d.LinesTouched()
	}

	rows := make([]schema.WeeklyStatsRow, 0, len(byWeek))
	for _, a := range byWeek {
		a.row.ProductivityScore = a.sum / float64(a.days)
		rows = append(rows, a.row)
	}
	slices.SortFunc(rows, func(a, b schema.WeeklyStatsRow) int {
		if c := cmp.Compare(a.Year, b.Year); c != 0 {
			return c
		}
		return cmp.Compare(a.Week, b.Week)
	})
	return rows
}
