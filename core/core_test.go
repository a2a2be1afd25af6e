package core

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/internal/iocache"
	"github.com/huangsam/devpulse/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type commitSpec struct {
	file, msg string
	when      time.Time
}

// newRepo creates root/acme/api with one commit per (file, message, when).
func newRepo(t *testing.T, commits ...commitSpec) string {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "acme", "api")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "tests"), 0o755))
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	for i, c := range commits {
		content := bytes.Repeat([]byte("line\n"), i+3)
		require.NoError(t, os.WriteFile(filepath.Join(dir, c.file), content, 0o644))
		_, err = wt.Add(c.file)
		require.NoError(t, err)
		_, err = wt.Commit(c.msg, &git.CommitOptions{
			Author: &object.Signature{Name: "dev", Email: "dev@acme.io", When: c.when},
		})
		require.NoError(t, err)
	}
	return root
}


func localConfig(root string, start, end time.Time) *contract.Config {
	return &contract.Config{
		Provider:       schema.LocalProvider,
		LocalRoot:      root,
		Repositories:   []string{"acme/api"},
		StartTime:      start,
		EndTime:        end,
		Location:       time.UTC,
		Workers:        2,
		MaxInflight:    2,
		RequestTimeout: 10 * time.Second,
		Output:         schema.TextOut,
		Precision:      1,
		DaysBack:       7,
		LLMModel:       contract.DefaultLLMModel,
	}
}

func newTestServices(t *testing.T, cfg *contract.Config, mgr contract.CacheManager) *Services {
	t.Helper()
	svc, err := NewServices(cfg, mgr, nil, nil)
	require.NoError(t, err)
	return svc
}

func TestNewServicesUsesCommitCache(t *testing.T) {
	store := &iocache.MockCacheStore{}
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetCommitStore").Return(store)

	cfg := localConfig(t.TempDir(), time.Now(), time.Now())
	cfg.UseCache = true
	svc := newTestServices(t, cfg, mgr)
	assert.NotNil(t, svc.Client)
	assert.False(t, svc.Categorizer.HasClassifier())
	mgr.AssertCalled(t, "GetCommitStore")
}

func TestNewServicesWithLLM(t *testing.T) {
	cfg := localConfig(t.TempDir(), time.Now(), time.Now())
	cfg.UseLLM = true
	cfg.OpenAIAPIKey = "sk-test"
	svc := newTestServices(t, cfg, nil)
	assert.True(t, svc.Categorizer.HasClassifier())
}

func TestExecuteSummaryForDate(t *testing.T) {
	root := newRepo(t,
		commitSpec{"main.go", "[FEAT] add login", time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)},
		commitSpec{"tests/login_test.py", "[TEST] cover login", time.Date(2025, 8, 20, 15, 0, 0, 0, time.UTC)},
		commitSpec{"README.md", "docs: readme", time.Date(2025, 8, 21, 10, 0, 0, 0, time.UTC)},
	)
	cfg := localConfig(root, time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC), time.Date(2025, 8, 24, 0, 0, 0, 0, time.UTC))
	cfg.TargetDate = time.Date(2025, 8, 20, 0, 0, 0, 0, time.UTC)

	var buf bytes.Buffer
	require.NoError(t, ExecuteSummary(context.Background(), cfg, newTestServices(t, cfg, nil), &buf))

	out := buf.String()
	assert.Contains(t, out, "ANALYZED DAY STATS")
	assert.Contains(t, out, "2025-08-20")
	assert.Contains(t, out, "Total commits: 2")
	assert.NotContains(t, out, "LAST WEEK SUMMARY")
}

func TestExecuteSummaryNoActivity(t *testing.T) {
	root := newRepo(t, commitSpec{"main.go", "[FEAT] add login", time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC)})
	cfg := localConfig(root, time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC), time.Date(2025, 8, 24, 0, 0, 0, 0, time.UTC))

	err := ExecuteSummary(context.Background(), cfg, newTestServices(t, cfg, nil), &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrNoActivity)
}

func TestExecuteReportWritesSpreadsheet(t *testing.T) {
	root := newRepo(t,
		commitSpec{"main.go", "[FEAT] add login", time.Date(2025, 8, 19, 9, 0, 0, 0, time.UTC)},
		commitSpec{"main.go", "[FIX] nil check", time.Date(2025, 8, 26, 9, 0, 0, 0, time.UTC)},
	)
	cfg := localConfig(root, time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC), time.Date(2025, 8, 31, 0, 0, 0, 0, time.UTC))
	cfg.ExcelFile = filepath.Join(t.TempDir(), "report.xlsx")

	var buf bytes.Buffer
	require.NoError(t, ExecuteReport(context.Background(), cfg, newTestServices(t, cfg, nil), &buf))

	assert.FileExists(t, cfg.ExcelFile)
	out := buf.String()
	assert.Contains(t, out, "Report saved to "+cfg.ExcelFile)
	assert.Contains(t, out, "LAST WEEK SUMMARY")
}

func TestExecuteReportRequiresRepositories(t *testing.T) {
	cfg := localConfig(t.TempDir(), time.Now(), time.Now())
	cfg.Repositories = nil
	err := ExecuteReport(context.Background(), cfg, newTestServices(t, cfg, nil), &bytes.Buffer{})
	assert.ErrorIs(t, err, contract.ErrNoRepositories)
}

func TestExecuteCategorizeMessage(t *testing.T) {
	cfg := localConfig(t.TempDir(), time.Now(), time.Now())
	cfg.Output = schema.JSONOut

	var buf bytes.Buffer
	require.NoError(t, ExecuteCategorize(context.Background(), cfg, newTestServices(t, cfg, nil), "[REFACTOR] split handler", nil, &buf))
	assert.Contains(t, buf.String(), `"tag": "REFACTOR"`)
	assert.Contains(t, buf.String(), `"method": "explicit"`)
}

func TestExecuteCategorizeSuggestsMessage(t *testing.T) {
	cfg := localConfig(t.TempDir(), time.Now(), time.Now())
	svc := newTestServices(t, cfg, nil)

	var buf bytes.Buffer
	require.NoError(t, ExecuteCategorize(context.Background(), cfg, svc, "resolve crash in checkout", nil, &buf))
	assert.Contains(t, buf.String(), "Suggested message: [FIX] resolve crash in checkout")

	buf.Reset()
	require.NoError(t, ExecuteCategorize(context.Background(), cfg, svc, "update some files", nil, &buf))
	assert.NotContains(t, buf.String(), "Suggested message")
}

func TestExecuteCategorizeWindow(t *testing.T) {
	root := newRepo(t,
		commitSpec{"main.go", "[FEAT] add login", time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)},
		commitSpec{"README.md", "random words", time.Date(2025, 8, 21, 9, 0, 0, 0, time.UTC)},
	)
	cfg := localConfig(root, time.Date(2025, 8, 18, 0, 0, 0, 0, time.UTC), time.Date(2025, 8, 24, 0, 0, 0, 0, time.UTC))
	cfg.Output = schema.CSVOut

	var buf bytes.Buffer
	require.NoError(t, ExecuteCategorize(context.Background(), cfg, newTestServices(t, cfg, nil), "", nil, &buf))
	assert.Contains(t, buf.String(), "FEAT")
	assert.Contains(t, buf.String(), "DOC")
}

func TestExecuteTags(t *testing.T) {
	cfg := localConfig(t.TempDir(), time.Now(), time.Now())
	var buf bytes.Buffer
	require.NoError(t, ExecuteTags(context.Background(), cfg, newTestServices(t, cfg, nil), &buf))
	assert.Contains(t, buf.String(), "SECURITY")
}

func TestExecuteCheck(t *testing.T) {
	root := newRepo(t, commitSpec{"main.go", "[FEAT] add login", time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC)})
	cfg := localConfig(root, time.Now(), time.Now())

	var buf bytes.Buffer
	require.NoError(t, ExecuteCheck(context.Background(), cfg, newTestServices(t, cfg, nil), &buf))
	assert.Contains(t, buf.String(), "acme/api")

	cfg.Repositories = []string{"acme/api", "acme/missing"}
	err := ExecuteCheck(context.Background(), cfg, newTestServices(t, cfg, nil), &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "acme/missing")
}

func TestExecuteIngestRequiresStatsStore(t *testing.T) {
	cfg := localConfig(t.TempDir(), time.Now(), time.Now())
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetStatsStore").Return(nil)

	err := ExecuteIngest(context.Background(), cfg, newTestServices(t, cfg, nil), mgr, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stats backend")
}

func TestExecuteIngestPublishes(t *testing.T) {
	yesterday := time.Now().UTC().AddDate(0, 0, -1).Truncate(time.Hour)
	root := newRepo(t,
		commitSpec{"main.go", "[FEAT] add login", yesterday.Add(-time.Hour)},
		commitSpec{"main.go", "[FIX] nil check", yesterday},
	)
	cfg := localConfig(root, time.Now(), time.Now())

	store := &iocache.MockStatsStore{}
	store.On("UpsertCommits", mock.Anything, mock.MatchedBy(func(c []schema.StoredCommit) bool { return len(c) == 2 })).Return(nil)
	store.On("UpsertDailyStats", mock.Anything, mock.Anything).Return(nil)
	store.On("UpsertWeeklyStats", mock.Anything, mock.Anything).Return(nil)
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetStatsStore").Return(store)

	var buf bytes.Buffer
	require.NoError(t, ExecuteIngest(context.Background(), cfg, newTestServices(t, cfg, nil), mgr, &buf))
	store.AssertExpectations(t)
	assert.Contains(t, buf.String(), "Published 2 commits")
}
