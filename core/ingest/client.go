// Package ingest fetches commits from every configured repository, caching
// each repository window and deduplicating commits reachable from many branches.
package ingest

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"time"

	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// Client fetches commits through a CommitSource.
// All upstream calls share one in-flight budget.
type Client struct {
	source   contract.CommitSource
	store    contract.CacheStore
	logger   *zap.Logger
	metrics  *Metrics
	workers  int
	inflight int
	sem      *semaphore.Weighted
	timeout  time.Duration
	maxAge   time.Duration
	useCache bool
	now      func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithCache enables the commit cache with entries younger than maxAge.
func WithCache(store contract.CacheStore, maxAge time.Duration) Option {
	return func(c *Client) {
		c.store = store
		c.useCache = store != nil
		if maxAge > 0 {
			c.maxAge = maxAge
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = contract.OrNop(logger) }
}

// WithMetrics sets the metric collectors.
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithWorkers bounds how many repositories are fetched at once.
func WithWorkers(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.workers = n
		}
	}
}

// WithMaxInflight bounds concurrent upstream calls across all repositories.
func WithMaxInflight(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.inflight = n
		}
	}
}

// WithRequestTimeout bounds every single upstream call.
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithClock replaces time.Now for cache freshness checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient creates a Client for source.
func NewClient(source contract.CommitSource, opts ...Option) *Client {
	c := &Client{
		source:   source,
		logger:   zap.NewNop(),
		metrics:  NewMetrics(nil),
		workers:  contract.DefaultWorkers,
		inflight: contract.DefaultMaxInflight,
		timeout:  contract.DefaultRequestTimeout,
		maxAge:   contract.DefaultCacheMaxAge,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.sem = semaphore.NewWeighted(int64(c.inflight))
	return c
}

// Source returns the upstream the client reads from.
func (c *Client) Source() contract.CommitSource {
	return c.source
}

// GetCommits returns the deduplicated commits of repos with since <= date <= until
// (calendar days), sorted ascending by date.
//
// Repositories that fail for any reason other than a rate limit are logged and
// skipped. A rate limit aborts the run with a *contract.RateLimitError.
func (c *Client) GetCommits(ctx context.Context, repos []string, since, until time.Time) ([]schema.CommitRecord, error) {
	results := make([][]schema.CommitRecord, len(repos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, repo := range repos {
		g.Go(func() error {
			commits, err := c.fetchRepository(gctx, repo, since, until)
			switch {
			case err == nil:
				results[i] = commits
				return nil
			case contract.IsRateLimit(err):
				c.logRateLimit(repo, err)
				return err
			case gctx.Err() != nil:
				return gctx.Err()
			case errors.Is(err, contract.ErrNotFound):
				c.logger.Warn("repository not found, skipping", zap.String("repo", repo))
				return nil
			default:
				c.logger.Warn("repository fetch failed, skipping", zap.String("repo", repo), zap.Error(err))
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []schema.CommitRecord
	for _, commits := range results {
		all = append(all, commits...)
	}
	SortCommits(all)
	return all, nil
}

// FetchRepository returns the deduplicated commits of one repository sorted
// by date. Unlike GetCommits, every failure is returned to the caller.
func (c *Client) FetchRepository(ctx context.Context, repo string, since, until time.Time) ([]schema.CommitRecord, error) {
	commits, err := c.fetchRepository(ctx, repo, since, until)
	if err != nil {
		if contract.IsRateLimit(err) {
			c.logRateLimit(repo, err)
		}
		return nil, err
	}
	SortCommits(commits)
	return commits, nil
}

func (c *Client) logRateLimit(repo string, err error) {
	rl, _ := contract.AsRateLimit(err)
	c.logger.Error("rate limit reached",
		zap.String("repo", repo),
		zap.Int("remaining", rl.Remaining),
		zap.Int("limit", rl.Limit),
		zap.Time("reset", rl.Reset))
}

// SortCommits orders commits by date, then SHA.
func SortCommits(commits []schema.CommitRecord) {
	slices.SortStableFunc(commits, func(a, b schema.CommitRecord) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.SHA, b.SHA)
	})
}

// fetchRepository serves one repository window from cache or upstream.
func (c *Client) fetchRepository(ctx context.Context, repo string, since, until time.Time) ([]schema.CommitRecord, error) {
	key := CacheKey(repo, since, until)
	if c.useCache {
		if commits, ok := c.checkCacheHit(ctx, key); ok {
			c.metrics.CacheRequests.WithLabelValues("hit").Inc()
			c.metrics.FetchTotal.WithLabelValues(repo, outcomeCached).Inc()
			c.logger.Debug("cache hit", zap.String("repo", repo), zap.Int("commits", len(commits)))
			return commits, nil
		}
		c.metrics.CacheRequests.WithLabelValues("miss").Inc()
	}

	commits, err := c.fetchUncached(ctx, repo, since, until)
	if err != nil {
		c.metrics.FetchTotal.WithLabelValues(repo, fetchOutcome(err)).Inc()
		return nil, err
	}
	c.metrics.FetchTotal.WithLabelValues(repo, outcomeFetched).Inc()
	c.metrics.CommitsFetched.WithLabelValues(repo).Add(float64(len(commits)))

	if c.useCache {
		c.storeInCache(ctx, key, commits)
	}
	return commits, nil
}

func fetchOutcome(err error) string {
	switch {
	case contract.IsRateLimit(err):
		return outcomeRateLimited
	case errors.Is(err, contract.ErrNotFound):
		return outcomeNotFound
	default:
		return outcomeFailed
	}
}

// fetchUncached walks every branch, merges the commits by SHA keeping the
// first occurrence, then fills in per-commit stats.
func (c *Client) fetchUncached(ctx context.Context, repo string, since, until time.Time) ([]schema.CommitRecord, error) {
	var branches []string
	err := c.call(ctx, "list_branches", func(ctx context.Context) error {
		var err error
		branches, err = c.source.ListBranches(ctx, repo)
		return err
	})
	if err != nil {
		return nil, err
	}

	windowEnd := schema.TruncateDay(until).AddDate(0, 0, 1)
	perBranch := make([][]schema.CommitRecord, len(branches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.inflight)
	for i, branch := range branches {
		g.Go(func() error {
			err := c.call(gctx, "list_commits", func(ctx context.Context) error {
				var err error
				perBranch[i], err = c.source.ListCommits(ctx, repo, branch, since, windowEnd)
				return err
			})
			switch {
			case err == nil, errors.Is(err, contract.ErrNotFound):
				return nil
			case contract.IsRateLimit(err), gctx.Err() != nil:
				return err
			default:
				c.logger.Warn("branch fetch failed, skipping",
					zap.String("repo", repo), zap.String("branch", branch), zap.Error(err))
				return nil
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	unique := dedupBySHA(perBranch)
	if err := c.fillDetails(ctx, repo, unique); err != nil {
		return nil, err
	}
	return unique, nil
}

// dedupBySHA flattens branch results in branch order keeping the first
// record of every SHA.
func dedupBySHA(perBranch [][]schema.CommitRecord) []schema.CommitRecord {
	seen := make(map[string]struct{})
	unique := []schema.CommitRecord{}
	for _, commits := range perBranch {
		for _, commit := range commits {
			if _, ok := seen[commit.SHA]; ok {
				continue
			}
			seen[commit.SHA] = struct{}{}
			unique = append(unique, commit)
		}
	}
	return unique
}

// fillDetails fetches stats and files of every commit in place.
// A failed lookup leaves the commit with zero stats.
func (c *Client) fillDetails(ctx context.Context, repo string, commits []schema.CommitRecord) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.inflight)
	for i := range commits {
		g.Go(func() error {
			var detail contract.CommitDetail
			err := c.call(gctx, "get_commit", func(ctx context.Context) error {
				var err error
				detail, err = c.source.GetCommitDetail(ctx, repo, commits[i].SHA)
				return err
			})
			switch {
			case err == nil:
				commits[i].Additions = detail.Additions
				commits[i].Deletions = detail.Deletions
				commits[i].FilesChanged = detail.Files
				return nil
			case contract.IsRateLimit(err), gctx.Err() != nil:
				return err
			default:
				c.logger.Debug("commit detail unavailable, using zero stats",
					zap.String("repo", repo), zap.String("sha", commits[i].SHA), zap.Error(err))
				return nil
			}
		})
	}
	return g.Wait()
}

// call runs fn under the shared in-flight budget and the per-request timeout.
func (c *Client) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	err := fn(cctx)
	c.metrics.UpstreamDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.UpstreamErrors.WithLabelValues(operation).Inc()
		if rl, ok := contract.AsRateLimit(err); ok {
			c.metrics.RateLimitEvents.Inc()
			c.metrics.RateLimitRemaining.Set(float64(rl.Remaining))
		}
	}
	return err
}
