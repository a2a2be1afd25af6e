package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/internal/iocache"
	"github.com/huangsam/devpulse/schema"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// fakeSource serves canned branches, commits and details and counts calls.
type fakeSource struct {
	mu        sync.Mutex
	branches  map[string][]string
	commits   map[string]map[string][]schema.CommitRecord
	details   map[string]contract.CommitDetail
	repoErr   map[string]error
	branchErr map[string]error
	detailErr map[string]error
	calls     int
	windows   [][2]time.Time
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		branches:  map[string][]string{},
		commits:   map[string]map[string][]schema.CommitRecord{},
		details:   map[string]contract.CommitDetail{},
		repoErr:   map[string]error{},
		branchErr: map[string]error{},
		detailErr: map[string]error{},
	}
}

func (f *fakeSource) Name() string { return "fake" }

func (f *fakeSource) ListBranches(_ context.Context, repo string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.repoErr[repo]; err != nil {
		return nil, err
	}
	return f.branches[repo], nil
}

func (f *fakeSource) ListCommits(_ context.Context, repo, branch string, since, until time.Time) ([]schema.CommitRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.windows = append(f.windows, [2]time.Time{since, until})
	if err := f.branchErr[branch]; err != nil {
		return nil, err
	}
	out := append([]schema.CommitRecord(nil), f.commits[repo][branch]...)
	return out, nil
}

func (f *fakeSource) GetCommitDetail(_ context.Context, _ string, sha string) (contract.CommitDetail, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.detailErr[sha]; err != nil {
		return contract.CommitDetail{}, err
	}
	return f.details[sha], nil
}

func (f *fakeSource) RateLimit(context.Context) (schema.RateInfo, error) {
	return schema.RateInfo{Limit: 5000, Remaining: 4200}, nil
}

func (f *fakeSource) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// memStore is an in-memory contract.CacheStore.
type memStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

type memEntry struct {
	data    []byte
	version int
	ts      int64
}

func newMemStore() *memStore { return &memStore{entries: map[string]memEntry{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, int, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[key]
	if !ok {
		return nil, 0, 0, contract.ErrCacheMiss
	}
	return e.data, e.version, e.ts, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte, version int, ts int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = memEntry{data: value, version: version, ts: ts}
	return nil
}

func (m *memStore) Clear(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = map[string]memEntry{}
	return nil
}

func (m *memStore) GetStatus() (schema.CacheStatus, error) {
	return schema.CacheStatus{Backend: "memory", Connected: true, TotalEntries: len(m.entries)}, nil
}

func (m *memStore) Close() error { return nil }

var (
	since = time.Date(2025, 8, 19, 0, 0, 0, 0, time.UTC)
	until = time.Date(2025, 8, 25, 0, 0, 0, 0, time.UTC)
)

func commitAt(repo, sha string, day int, hour int) schema.CommitRecord {
	return schema.CommitRecord{
		SHA:        sha,
		Message:    "feat: " + sha,
		Author:     "Fabio",
		Date:       time.Date(2025, 8, day, hour, 0, 0, 0, time.UTC),
		Repository: repo,
	}
}

func sampleSource() *fakeSource {
	src := newFakeSource()
	src.branches["acme/api"] = []string{"main", "feature"}
	src.commits["acme/api"] = map[string][]schema.CommitRecord{
		"main":    {commitAt("acme/api", "c2", 21, 9), commitAt("acme/api", "c1", 20, 9)},
		"feature": {commitAt("acme/api", "c3", 22, 9), commitAt("acme/api", "c1", 20, 9)},
	}
	src.branches["acme/web"] = []string{"main"}
	src.commits["acme/web"] = map[string][]schema.CommitRecord{
		"main": {commitAt("acme/web", "w1", 20, 8)},
	}
	src.details["c1"] = contract.CommitDetail{Additions: 10, Deletions: 2, Files: []string{"a.go"}}
	src.details["c2"] = contract.CommitDetail{Additions: 5, Deletions: 5, Files: []string{"b.go", "c.go"}}
	src.details["c3"] = contract.CommitDetail{Additions: 1}
	src.details["w1"] = contract.CommitDetail{Additions: 40, Files: []string{"index.ts"}}
	return src
}

func shas(commits []schema.CommitRecord) []string {
	out := make([]string, len(commits))
	for i, c := range commits {
		out[i] = c.SHA
	}
	return out
}

func TestGetCommitsDedupAndOrder(t *testing.T) {
	src := sampleSource()
	client := NewClient(src, WithWorkers(2), WithMaxInflight(3))

	commits, err := client.GetCommits(context.Background(), []string{"acme/api", "acme/web"}, since, until)
	require.NoError(t, err)

	assert.Equal(t, []string{"w1", "c1", "c2", "c3"}, shas(commits))
	assert.Equal(t, 10, commits[1].Additions)
	assert.Equal(t, []string{"b.go", "c.go"}, commits[2].FilesChanged)
}

func TestGetCommitsWidensWindowByOneDay(t *testing.T) {
	src := sampleSource()
	client := NewClient(src)

	_, err := client.GetCommits(context.Background(), []string{"acme/web"}, since, until)
	require.NoError(t, err)

	require.Len(t, src.windows, 1)
	assert.Equal(t, since, src.windows[0][0])
	assert.Equal(t, until.AddDate(0, 0, 1), src.windows[0][1])
}

func TestGetCommitsCacheIdempotent(t *testing.T) {
	src := sampleSource()
	store := newMemStore()
	client := NewClient(src, WithCache(store, time.Hour))
	repos := []string{"acme/api", "acme/web"}

	first, err := client.GetCommits(context.Background(), repos, since, until)
	require.NoError(t, err)
	calls := src.callCount()
	assert.Positive(t, calls)

	second, err := client.GetCommits(context.Background(), repos, since, until)
	require.NoError(t, err)

	assert.Equal(t, calls, src.callCount(), "second call must not reach upstream")
	assert.Equal(t, first, second)
}

func TestGetCommitsStaleCacheRefetches(t *testing.T) {
	src := sampleSource()
	store := newMemStore()
	now := time.Date(2025, 8, 26, 12, 0, 0, 0, time.UTC)
	client := NewClient(src, WithCache(store, 24*time.Hour), WithClock(func() time.Time { return now }))

	_, err := client.GetCommits(context.Background(), []string{"acme/web"}, since, until)
	require.NoError(t, err)
	calls := src.callCount()

	now = now.Add(25 * time.Hour)
	_, err = client.GetCommits(context.Background(), []string{"acme/web"}, since, until)
	require.NoError(t, err)
	assert.Greater(t, src.callCount(), calls)
}

func TestGetCommitsIgnoresOldCacheVersion(t *testing.T) {
	src := sampleSource()
	store := &iocache.MockCacheStore{}
	key := CacheKey("acme/web", since, until)
	store.On("Get", mock.Anything, key).Return([]byte(`[]`), currentCacheVersion+1, time.Now().Unix(), nil)
	store.On("Set", mock.Anything, key, mock.Anything, currentCacheVersion, mock.AnythingOfType("int64")).Return(nil)

	client := NewClient(src, WithCache(store, time.Hour))
	commits, err := client.GetCommits(context.Background(), []string{"acme/web"}, since, until)
	require.NoError(t, err)

	assert.Equal(t, []string{"w1"}, shas(commits))
	store.AssertExpectations(t)
}

func TestGetCommitsWithoutCacheNeverTouchesStore(t *testing.T) {
	src := sampleSource()
	client := NewClient(src, WithCache(nil, time.Hour))

	_, err := client.GetCommits(context.Background(), []string{"acme/web"}, since, until)
	require.NoError(t, err)
	assert.False(t, client.useCache)
}

func TestGetCommitsRateLimitPropagates(t *testing.T) {
	src := sampleSource()
	reset := time.Date(2025, 8, 26, 13, 0, 0, 0, time.UTC)
	src.repoErr["acme/web"] = &contract.RateLimitError{Limit: 5000, Remaining: 0, Reset: reset}

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	client := NewClient(src, WithMetrics(metrics))

	commits, err := client.GetCommits(context.Background(), []string{"acme/api", "acme/web"}, since, until)
	require.Error(t, err)
	assert.Nil(t, commits)

	rl, ok := contract.AsRateLimit(err)
	require.True(t, ok)
	assert.Equal(t, 5000, rl.Limit)
	assert.Equal(t, reset, rl.Reset)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.RateLimitEvents))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchTotal.WithLabelValues("acme/web", outcomeRateLimited)))
}

func TestGetCommitsDetailRateLimitPropagates(t *testing.T) {
	src := sampleSource()
	src.detailErr["w1"] = &contract.RateLimitError{Limit: 60}
	client := NewClient(src)

	_, err := client.GetCommits(context.Background(), []string{"acme/web"}, since, until)
	assert.True(t, contract.IsRateLimit(err))
}

func TestGetCommitsSkipsFailedRepository(t *testing.T) {
	src := sampleSource()
	src.repoErr["acme/api"] = errors.New("forbidden")
	src.repoErr["acme/gone"] = contract.ErrNotFound

	commits, err := NewClient(src).GetCommits(context.Background(), []string{"acme/api", "acme/gone", "acme/web"}, since, until)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, shas(commits))
}

func TestFetchRepositoryReturnsFailures(t *testing.T) {
	src := sampleSource()
	src.repoErr["acme/api"] = errors.New("server error")
	src.repoErr["acme/gone"] = contract.ErrNotFound
	client := NewClient(src)

	_, err := client.FetchRepository(context.Background(), "acme/api", since, until)
	assert.EqualError(t, err, "server error")

	_, err = client.FetchRepository(context.Background(), "acme/gone", since, until)
	assert.ErrorIs(t, err, contract.ErrNotFound)

	commits, err := client.FetchRepository(context.Background(), "acme/web", since, until)
	require.NoError(t, err)
	assert.Equal(t, []string{"w1"}, shas(commits))
}

func TestGetCommitsSkipsFailedBranch(t *testing.T) {
	src := sampleSource()
	src.branchErr["feature"] = errors.New("boom")

	commits, err := NewClient(src).GetCommits(context.Background(), []string{"acme/api"}, since, until)
	require.NoError(t, err)
	assert.Equal(t, []string{"c1", "c2"}, shas(commits))
}

func TestGetCommitsDetailFailureDefaultsToZero(t *testing.T) {
	src := sampleSource()
	src.detailErr["w1"] = errors.New("timeout")

	commits, err := NewClient(src).GetCommits(context.Background(), []string{"acme/web"}, since, until)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Zero(t, commits[0].Additions)
	assert.Zero(t, commits[0].Deletions)
	assert.Empty(t, commits[0].FilesChanged)
}

func TestGetCommitsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	client := NewClient(sampleSource(), WithMetrics(metrics), WithCache(newMemStore(), time.Hour))
	repos := []string{"acme/api"}

	_, err := client.GetCommits(context.Background(), repos, since, until)
	require.NoError(t, err)
	_, err = client.GetCommits(context.Background(), repos, since, until)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchTotal.WithLabelValues("acme/api", outcomeFetched)))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.FetchTotal.WithLabelValues("acme/api", outcomeCached)))
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.CommitsFetched.WithLabelValues("acme/api")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheRequests.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.CacheRequests.WithLabelValues("miss")))
}

func TestGetCommitsCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewClient(sampleSource()).GetCommits(ctx, []string{"acme/api"}, since, until)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCacheKey(t *testing.T) {
	a := CacheKey("acme/api", since, until)
	assert.Len(t, a, 64)
	assert.Equal(t, a, CacheKey("acme/api", since, until))
	assert.NotEqual(t, a, CacheKey("acme/web", since, until))
	assert.NotEqual(t, a, CacheKey("acme/api", since, until.AddDate(0, 0, 1)))
}

func TestSortCommitsTieBreaksOnSHA(t *testing.T) {
	commits := []schema.CommitRecord{
		commitAt("r", "b", 20, 9),
		commitAt("r", "a", 20, 9),
		commitAt("r", "z", 19, 9),
	}
	SortCommits(commits)
	assert.Equal(t, []string{"z", "a", "b"}, shas(commits))
}

func TestCheckConnection(t *testing.T) {
	src := sampleSource()
	src.repoErr["acme/gone"] = contract.ErrNotFound
	src.repoErr["acme/busy"] = &contract.RateLimitError{}
	src.repoErr["acme/bad"] = errors.New("forbidden")

	report := NewClient(src).CheckConnection(context.Background(), []string{"acme/api", "acme/gone", "acme/busy", "acme/bad"})

	assert.Equal(t, "fake", report.Provider)
	require.NotNil(t, report.RateLimit)
	assert.Equal(t, 4200, report.RateLimit.Remaining)
	assert.Equal(t, map[string]string{
		"acme/api":  "ok (2 branches)",
		"acme/gone": StatusNotFound,
		"acme/busy": StatusRateLimited,
		"acme/bad":  "error: forbidden",
	}, report.Repositories)
}
