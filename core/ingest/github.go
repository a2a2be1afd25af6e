package ingest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v66/github"
	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
)

const githubPageSize = 100

// GitHubSource reads repositories through the GitHub REST API.
type GitHubSource struct {
	client *github.Client
}

var _ contract.CommitSource = (*GitHubSource)(nil)

// NewGitHubSource creates a source authenticated with token.
// An empty baseURL targets api.github.com.
func NewGitHubSource(token, baseURL string) (*GitHubSource, error) {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if baseURL != "" {
		if !strings.HasSuffix(baseURL, "/") {
			baseURL += "/"
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL %q: %w", baseURL, err)
		}
		client.BaseURL = u
	}
	return &GitHubSource{client: client}, nil
}

// Name implements contract.CommitSource.
func (s *GitHubSource) Name() string {
	return string(schema.GitHubProvider)
}

// ListBranches implements contract.CommitSource.
func (s *GitHubSource) ListBranches(ctx context.Context, repo string) ([]string, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	opts := &github.BranchListOptions{ListOptions: github.ListOptions{PerPage: githubPageSize}}
	var branches []string
	for {
		page, resp, err := s.client.Repositories.ListBranches(ctx, owner, name, opts)
		if err != nil {
			return nil, mapGitHubError(err)
		}
		for _, b := range page {
			branches = append(branches, b.GetName())
		}
		if resp.NextPage == 0 {
			return branches, nil
		}
		opts.Page = resp.NextPage
	}
}

// ListCommits implements contract.CommitSource.
func (s *GitHubSource) ListCommits(ctx context.Context, repo, branch string, since, until time.Time) ([]schema.CommitRecord, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return nil, err
	}

	opts := &github.CommitsListOptions{
		SHA:         branch,
		Since:       since,
		Until:       until,
		ListOptions: github.ListOptions{PerPage: githubPageSize},
	}
	var commits []schema.CommitRecord
	for {
		page, resp, err := s.client.Repositories.ListCommits(ctx, owner, name, opts)
		if err != nil {
			return nil, mapGitHubError(err)
		}
		for _, rc := range page {
			record := githubRecord(repo, rc)
			// the API treats until as inclusive
			if !record.Date.Before(until) {
				continue
			}
			commits = append(commits, record)
		}
		if resp.NextPage == 0 {
			return commits, nil
		}
		opts.Page = resp.NextPage
	}
}

// GetCommitDetail implements contract.CommitSource.
func (s *GitHubSource) GetCommitDetail(ctx context.Context, repo, sha string) (contract.CommitDetail, error) {
	owner, name, err := splitRepo(repo)
	if err != nil {
		return contract.CommitDetail{}, err
	}

	rc, _, err := s.client.Repositories.GetCommit(ctx, owner, name, sha, &github.ListOptions{})
	if err != nil {
		return contract.CommitDetail{}, mapGitHubError(err)
	}
	detail := contract.CommitDetail{
		Additions: rc.GetStats().GetAdditions(),
		Deletions: rc.GetStats().GetDeletions(),
	}
	for _, f := range rc.Files {
		detail.Files = append(detail.Files, f.GetFilename())
	}
	return detail, nil
}

// RateLimit implements contract.CommitSource.
func (s *GitHubSource) RateLimit(ctx context.Context) (schema.RateInfo, error) {
	limits, _, err := s.client.RateLimit.Get(ctx)
	if err != nil {
		return schema.RateInfo{}, mapGitHubError(err)
	}
	core := limits.GetCore()
	if core == nil {
		return schema.RateInfo{}, nil
	}
	return schema.RateInfo{
		Limit:     core.Limit,
		Remaining: core.Remaining,
		Reset:     core.Reset.Time,
	}, nil
}

func githubRecord(repo string, rc *github.RepositoryCommit) schema.CommitRecord {
	author := rc.GetCommit().GetAuthor()
	return schema.CommitRecord{
		SHA:         rc.GetSHA(),
		Message:     rc.GetCommit().GetMessage(),
		Author:      authorName(author.GetName()),
		AuthorEmail: author.GetEmail(),
		Date:        author.GetDate().Time,
		Repository:  repo,
	}
}

// mapGitHubError translates go-github errors into contract errors.
func mapGitHubError(err error) error {
	var rl *github.RateLimitError
	if errors.As(err, &rl) {
		return &contract.RateLimitError{
			Limit:     rl.Rate.Limit,
			Remaining: rl.Rate.Remaining,
			Reset:     rl.Rate.Reset.Time,
			Err:       err,
		}
	}

	var abuse *github.AbuseRateLimitError
	if errors.As(err, &abuse) {
		reset := time.Now()
		if abuse.RetryAfter != nil {
			reset = reset.Add(*abuse.RetryAfter)
		}
		return &contract.RateLimitError{Reset: reset, Err: err}
	}

	var resp *github.ErrorResponse
	if errors.As(err, &resp) && resp.Response != nil && resp.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %w", contract.ErrNotFound, err)
	}
	return err
}

func splitRepo(repo string) (string, string, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return "", "", fmt.Errorf("repository %q must be owner/name", repo)
	}
	return owner, name, nil
}
