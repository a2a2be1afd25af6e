package publish

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/devpulse/core/categorize"
	"github.com/huangsam/devpulse/core/ingest"
	"github.com/huangsam/devpulse/core/productivity"
	"github.com/huangsam/devpulse/core/tags"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/internal/iocache"
	"github.com/huangsam/devpulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu      sync.Mutex
	commits map[string][]schema.CommitRecord
	errs    map[string]error
	calls   []string
}

func (f *fakeFetcher) FetchRepository(_ context.Context, repo string, _, _ time.Time) ([]schema.CommitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, repo)
	if err := f.errs[repo]; err != nil {
		return nil, err
	}
	return f.commits[repo], nil
}

func at(d, h int) time.Time {
	return time.Date(2025, 8, d, h, 0, 0, 0, time.UTC)
}

func record(repo, sha, msg string, date time.Time, add, del int) schema.CommitRecord {
	return schema.CommitRecord{
		SHA: sha, Message: msg, Author: "dev", Date: date, Repository: repo,
		Additions: add, Deletions: del, FilesChanged: []string{"main.go"},
	}
}

func newPublisher(f CommitFetcher, store contract.StatsStore) *Publisher {
	registry := tags.Default()
	analyzer := productivity.NewAnalyzer(categorize.New(registry))
	return NewPublisher(f, analyzer, registry, store, nil, 2)
}

func TestRunUpsertsCommitsDailyAndWeekly(t *testing.T) {
	ctx := context.Background()
	fetcher := &fakeFetcher{commits: map[string][]schema.CommitRecord{
		"org/a": {
			record("org/a", "a1", "[FEAT] add login", at(18, 9), 100, 10), // Monday, W34
			record("org/a", "a2", "random words", at(18, 15), 5, 5),       // untagged
			record("org/a", "a3", "[FIX] null check", at(25, 10), 3, 1),   // Monday, W35
		},
	}}

	store := &iocache.MockStatsStore{}
	var stored []schema.StoredCommit
	var daily []schema.DailyStatsRow
	var weekly []schema.WeeklyStatsRow
	store.On("UpsertCommits", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		stored = args.Get(1).([]schema.StoredCommit)
	}).Return(nil)
	store.On("UpsertDailyStats", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		daily = args.Get(1).([]schema.DailyStatsRow)
	}).Return(nil)
	store.On("UpsertWeeklyStats", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		weekly = args.Get(1).([]schema.WeeklyStatsRow)
	}).Return(nil)

	res, err := newPublisher(fetcher, store).Run(ctx, []string{"org/a"}, at(18, 0), at(31, 0))
	require.NoError(t, err)
	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 3, res.Commits)
	assert.Equal(t, 2, res.DailyRows)
	assert.Equal(t, 2, res.WeeklyRows)
	assert.Empty(t, res.Failed)

	require.Len(t, stored, 3)
	assert.Equal(t, "a1", stored[0].Hash)
	assert.Equal(t, `["FEAT"]`, stored[0].Tags)
	assert.JSONEq(t, `{"additions":100,"deletions":10,"total":110}`, stored[0].Stats)
	a, err := schema.DecodeCommitAnalysis(stored[0].Analysis)
	require.NoError(t, err)
	assert.Equal(t, "FEAT", a.CanonicTag)
	assert.Equal(t, schema.MethodExplicit, a.Method)
	assert.Equal(t, 90, a.NetLines)

	untagged, err := schema.DecodeCommitAnalysis(stored[1].Analysis)
	require.NoError(t, err)
	if untagged.CanonicTag == schema.UntaggedTag {
		assert.Equal(t, "[]", stored[1].Tags)
	}

	require.Len(t, daily, 2)
	assert.True(t, daily[0].Date.Equal(at(18, 0)))
	assert.Equal(t, "org/a", daily[0].RepoName)
	assert.Equal(t, 2, daily[0].TotalCommits)
	assert.Equal(t, 105, daily[0].LinesAdded)

	require.Len(t, weekly, 2)
	assert.Equal(t, 34, weekly[0].Week)
	assert.Equal(t, 35, weekly[1].Week)
	assert.InDelta(t, daily[0].ProductivityScore, weekly[0].ProductivityScore, 1e-9)
	store.AssertExpectations(t)
}

func TestRunSkipsEmptyRepository(t *testing.T) {
	store := &iocache.MockStatsStore{}
	res, err := newPublisher(&fakeFetcher{}, store).Run(context.Background(), []string{"org/empty"}, at(18, 0), at(25, 0))
	require.NoError(t, err)
	assert.Zero(t, res.Commits)
	store.AssertNotCalled(t, "UpsertCommits", mock.Anything, mock.Anything)
}

func TestRunReportsFailedRepositories(t *testing.T) {
	fetcher := &fakeFetcher{
		commits: map[string][]schema.CommitRecord{
			"org/ok":    {record("org/ok", "x", "[DOC] readme", at(19, 9), 10, 0)},
			"org/write": {record("org/write", "y", "[DOC] readme", at(19, 9), 10, 0)},
		},
		errs: map[string]error{"org/gone": contract.ErrNotFound},
	}
	store := &iocache.MockStatsStore{}
	store.On("UpsertCommits", mock.Anything, mock.MatchedBy(func(c []schema.StoredCommit) bool {
		return c[0].RepoName == "org/write"
	})).Return(errors.New("disk full"))
	store.On("UpsertCommits", mock.Anything, mock.Anything).Return(nil)
	store.On("UpsertDailyStats", mock.Anything, mock.Anything).Return(nil)
	store.On("UpsertWeeklyStats", mock.Anything, mock.Anything).Return(nil)

	res, err := newPublisher(fetcher, store).Run(context.Background(),
		[]string{"org/ok", "org/gone", "org/write"}, at(18, 0), at(25, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"org/gone", "org/write"}, res.Failed)
	assert.Equal(t, 1, res.Commits)
}

// failingSource fails every branch listing with the error of its repository.
type failingSource struct {
	errs map[string]error
}

func (f failingSource) Name() string { return "failing" }

func (f failingSource) ListBranches(_ context.Context, repo string) ([]string, error) {
	if err := f.errs[repo]; err != nil {
		return nil, err
	}
	return nil, nil
}

func (f failingSource) ListCommits(context.Context, string, string, time.Time, time.Time) ([]schema.CommitRecord, error) {
	return nil, nil
}

func (f failingSource) GetCommitDetail(context.Context, string, string) (contract.CommitDetail, error) {
	return contract.CommitDetail{}, nil
}

func (f failingSource) RateLimit(context.Context) (schema.RateInfo, error) {
	return schema.RateInfo{}, nil
}

func TestRunReportsUpstreamFailuresThroughClient(t *testing.T) {
	client := ingest.NewClient(failingSource{errs: map[string]error{
		"org/gone":   contract.ErrNotFound,
		"org/broken": errors.New("502 bad gateway"),
	}})
	store := &iocache.MockStatsStore{}

	res, err := newPublisher(client, store).Run(context.Background(),
		[]string{"org/broken", "org/empty", "org/gone"}, at(18, 0), at(25, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"org/broken", "org/gone"}, res.Failed)
	assert.Zero(t, res.Commits)
	store.AssertNotCalled(t, "UpsertCommits", mock.Anything, mock.Anything)
}

func TestRunAbortsOnRateLimit(t *testing.T) {
	fetcher := &fakeFetcher{errs: map[string]error{
		"org/a": &contract.RateLimitError{Limit: 5000, Reset: at(18, 12)},
	}}
	store := &iocache.MockStatsStore{}

	_, err := newPublisher(fetcher, store).Run(context.Background(), []string{"org/a"}, at(18, 0), at(25, 0))
	require.Error(t, err)
	assert.True(t, contract.IsRateLimit(err))
}

func TestWeeklyRowsMeanOfActiveDays(t *testing.T) {
	days := []schema.DayStats{
		{Date: at(18, 0), TotalCommits: 1, ProductivityIndex: 10, WeightedCommits: 1, LinesAdded: 5},
		{Date: at(19, 0)}, // inactive
		{Date: at(20, 0), TotalCommits: 2, ProductivityIndex: 20, WeightedCommits: 1.5, LinesDeleted: 7},
		{Date: at(25, 0), TotalCommits: 1, ProductivityIndex: 4},
	}

	rows := WeeklyRows("org/a", days)
	require.Len(t, rows, 2)
	assert.Equal(t, schema.WeeklyStatsRow{
		Year: 2025, Week: 34, RepoName: "org/a", ProductivityScore: 15,
		Metrics: schema.WeeklyMetrics{TotalCommits: 3, WeightedCommits: 2.5, LinesTouched: 12},
	}, rows[0])
	assert.Equal(t, 35, rows[1].Week)
	assert.InDelta(t, 4, rows[1].ProductivityScore, 1e-9)
}

func TestDailyRowsSkipsInactiveDays(t *testing.T) {
	rows := DailyRows("org/a", []schema.DayStats{
		{Date: at(18, 0)},
		{Date: at(19, 0), TotalCommits: 1, CodingMinutes: 90, TestingMinutes: 30, DayType: "MIXED"},
	})
	require.Len(t, rows, 1)
	assert.InDelta(t, 1.5, rows[0].CodingHours, 1e-9)
	assert.InDelta(t, 0.5, rows[0].TestingHours, 1e-9)
	assert.Equal(t, "MIXED", rows[0].DayType)
}
