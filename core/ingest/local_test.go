package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commitFile writes content to name and commits it at when.
func commitFile(t *testing.T, repo *git.Repository, dir, name, content, msg string, when time.Time) plumbing.Hash {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add(name)
	require.NoError(t, err)
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "Fabio", Email: "f@x.io", When: when},
	})
	require.NoError(t, err)
	return hash
}

// initRepo builds root/acme/api with two commits on master and one more on
// a feature branch.
func initRepo(t *testing.T) (string, map[string]plumbing.Hash) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "acme", "api")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	hashes := map[string]plumbing.Hash{}
	hashes["old"] = commitFile(t, repo, dir, "README.md", "hello\n", "docs: readme", time.Date(2025, 8, 1, 9, 0, 0, 0, time.UTC))
	hashes["fix"] = commitFile(t, repo, dir, "main.go", "package main\n\nfunc main() {}\n", "[FIX] entrypoint", time.Date(2025, 8, 20, 9, 0, 0, 0, time.UTC))

	head, err := repo.Head()
	require.NoError(t, err)
	require.NoError(t, repo.Storer.SetReference(plumbing.NewHashReference(plumbing.NewBranchReferenceName("feature"), head.Hash())))

	wt, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName("feature")}))
	hashes["feat"] = commitFile(t, repo, dir, "feature.go", "package main\n", "feat: feature", time.Date(2025, 8, 22, 9, 0, 0, 0, time.UTC))
	return root, hashes
}

func TestLocalListBranches(t *testing.T) {
	root, _ := initRepo(t)
	branches, err := NewLocalSource(root).ListBranches(context.Background(), "acme/api")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"master", "feature"}, branches)
}

func TestLocalFallsBackToShortName(t *testing.T) {
	root, _ := initRepo(t)
	src := NewLocalSource(filepath.Join(root, "acme"))
	branches, err := src.ListBranches(context.Background(), "someone/api")
	require.NoError(t, err)
	assert.NotEmpty(t, branches)
}

func TestLocalMissingRepository(t *testing.T) {
	_, err := NewLocalSource(t.TempDir()).ListBranches(context.Background(), "acme/none")
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

func TestLocalMissingBranch(t *testing.T) {
	root, _ := initRepo(t)
	_, err := NewLocalSource(root).ListCommits(context.Background(), "acme/api", "nope", since, until)
	assert.ErrorIs(t, err, contract.ErrNotFound)
}

func TestLocalListCommitsWindow(t *testing.T) {
	root, hashes := initRepo(t)
	commits, err := NewLocalSource(root).ListCommits(context.Background(), "acme/api", "master", since, until)
	require.NoError(t, err)

	require.Len(t, commits, 1)
	assert.Equal(t, hashes["fix"].String(), commits[0].SHA)
	assert.Equal(t, "Fabio", commits[0].Author)
	assert.Equal(t, "acme/api", commits[0].Repository)
	assert.Equal(t, "[FIX] entrypoint", commits[0].Subject())
}

func TestLocalListCommitsWindowUsesAuthorTime(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "acme", "api")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	commitAs := func(name, msg string, authored, committed time.Time) plumbing.Hash {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(msg), 0o644))
		wt, err := repo.Worktree()
		require.NoError(t, err)
		_, err = wt.Add(name)
		require.NoError(t, err)
		hash, err := wt.Commit(msg, &git.CommitOptions{
			Author:    &object.Signature{Name: "Fabio", Email: "f@x.io", When: authored},
			Committer: &object.Signature{Name: "Fabio", Email: "f@x.io", When: committed},
		})
		require.NoError(t, err)
		return hash
	}

	// authored before the window, rebased into it
	commitAs("old.go", "old work", since.AddDate(0, 0, -3), since.Add(2*time.Hour))
	// authored inside the window, amended after it
	amended := commitAs("late.go", "late work", until.Add(-time.Hour), until.AddDate(0, 0, 2))

	commits, err := NewLocalSource(root).ListCommits(context.Background(), "acme/api", "master", since, until)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, amended.String(), commits[0].SHA)
	assert.True(t, commits[0].Date.Equal(until.Add(-time.Hour)))
}

func TestLocalCommitDetail(t *testing.T) {
	root, hashes := initRepo(t)
	detail, err := NewLocalSource(root).GetCommitDetail(context.Background(), "acme/api", hashes["fix"].String())
	require.NoError(t, err)
	assert.Equal(t, 3, detail.Additions)
	assert.Zero(t, detail.Deletions)
	assert.Equal(t, []string{"main.go"}, detail.Files)
}

func TestLocalThroughClientDedups(t *testing.T) {
	root, hashes := initRepo(t)
	client := NewClient(NewLocalSource(root))

	commits, err := client.GetCommits(context.Background(), []string{"acme/api"}, since, until)
	require.NoError(t, err)

	assert.Equal(t, []string{hashes["fix"].String(), hashes["feat"].String()}, shas(commits))
	assert.Equal(t, []string{"feature.go"}, commits[1].FilesChanged)
}

func TestLocalRateLimitIsEmpty(t *testing.T) {
	info, err := NewLocalSource(t.TempDir()).RateLimit(context.Background())
	require.NoError(t, err)
	assert.Zero(t, info.Limit)
}
