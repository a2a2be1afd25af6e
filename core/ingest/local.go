package ingest

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
)

// LocalSource reads repositories cloned under a common root directory.
// A repository "owner/name" is looked up as root/owner/name, then root/name.
type LocalSource struct {
	root string

	mu    sync.Mutex
	repos map[string]*git.Repository
}

var _ contract.CommitSource = (*LocalSource)(nil)

// NewLocalSource creates a source over root.
func NewLocalSource(root string) *LocalSource {
	return &LocalSource{root: root, repos: make(map[string]*git.Repository)}
}

// Name implements contract.CommitSource.
func (s *LocalSource) Name() string {
	return string(schema.LocalProvider)
}

// open returns the cached repository handle. Callers must hold s.mu.
func (s *LocalSource) open(repo string) (*git.Repository, error) {
	if r, ok := s.repos[repo]; ok {
		return r, nil
	}
	var lastErr error
	for _, path := range []string{filepath.Join(s.root, repo), filepath.Join(s.root, schema.ShortRepoName(repo))} {
		r, err := git.PlainOpen(path)
		if err == nil {
			s.repos[repo] = r
			return r, nil
		}
		lastErr = err
	}
	if errors.Is(lastErr, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%w: repository %s under %s", contract.ErrNotFound, repo, s.root)
	}
	return nil, fmt.Errorf("open repository %s: %w", repo, lastErr)
}

// ListBranches implements contract.CommitSource.
func (s *LocalSource) ListBranches(ctx context.Context, repo string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.open(repo)
	if err != nil {
		return nil, err
	}
	iter, err := r.Branches()
	if err != nil {
		return nil, fmt.Errorf("list branches of %s: %w", repo, err)
	}
	defer iter.Close()

	var branches []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		branches = append(branches, ref.Name().Short())
		return nil
	})
	return branches, err
}

// ListCommits implements contract.CommitSource.
func (s *LocalSource) ListCommits(ctx context.Context, repo, branch string, since, until time.Time) ([]schema.CommitRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.open(repo)
	if err != nil {
		return nil, err
	}
	ref, err := r.Reference(plumbing.NewBranchReferenceName(branch), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return nil, fmt.Errorf("%w: branch %s of %s", contract.ErrNotFound, branch, repo)
		}
		return nil, fmt.Errorf("resolve branch %s of %s: %w", branch, repo, err)
	}

	// go-git's Since/Until compare committer time; the window is on author time.
	iter, err := r.Log(&git.LogOptions{From: ref.Hash()})
	if err != nil {
		return nil, fmt.Errorf("log %s of %s: %w", branch, repo, err)
	}
	defer iter.Close()

	var commits []schema.CommitRecord
	err = iter.ForEach(func(c *object.Commit) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if c.Author.When.Before(since) || !c.Author.When.Before(until) {
			return nil
		}
		commits = append(commits, schema.CommitRecord{
			SHA:         c.Hash.String(),
			Message:     c.Message,
			Author:      authorName(c.Author.Name),
			AuthorEmail: c.Author.Email,
			Date:        c.Author.When,
			Repository:  repo,
		})
		return nil
	})
	if errors.Is(err, storer.ErrStop) {
		err = nil
	}
	return commits, err
}

// GetCommitDetail implements contract.CommitSource.
func (s *LocalSource) GetCommitDetail(ctx context.Context, repo, sha string) (contract.CommitDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return contract.CommitDetail{}, err
	}
	r, err := s.open(repo)
	if err != nil {
		return contract.CommitDetail{}, err
	}
	c, err := r.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return contract.CommitDetail{}, fmt.Errorf("%w: commit %s of %s", contract.ErrNotFound, sha, repo)
		}
		return contract.CommitDetail{}, err
	}
	stats, err := c.StatsContext(ctx)
	if err != nil {
		return contract.CommitDetail{}, fmt.Errorf("stats of %s: %w", sha, err)
	}

	var detail contract.CommitDetail
	for _, fs := range stats {
		detail.Additions += fs.Addition
		detail.Deletions += fs.Deletion
		detail.Files = append(detail.Files, fs.Name)
	}
	return detail, nil
}

// RateLimit implements contract.CommitSource. Local repositories have no quota.
func (s *LocalSource) RateLimit(context.Context) (schema.RateInfo, error) {
	return schema.RateInfo{}, nil
}

func authorName(name string) string {
	if name == "" {
		return "Unknown"
	}
	return name
}
