// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/devpulse/schema"
)

// CommitDetail is the per-commit data that needs a separate upstream call.
type CommitDetail struct {
	Additions int
	Deletions int
	Files     []string
}

// CommitSource defines the upstream operations needed to ingest a repository.
// Implementations must return a *RateLimitError when the quota is exhausted
// and ErrNotFound when the repository or branch does not exist.
type CommitSource interface {
	// Name identifies the provider in logs and reports.
	Name() string

	// ListBranches returns the branch names of a repository.
	ListBranches(ctx context.Context, repo string) ([]string, error)

	// ListCommits returns commits reachable from branch with since <= date < until.
	// Stats and file lists are left empty.
	ListCommits(ctx context.Context, repo, branch string, since, until time.Time) ([]schema.CommitRecord, error)

	// GetCommitDetail returns line-change statistics and touched files of one commit.
	GetCommitDetail(ctx context.Context, repo, sha string) (CommitDetail, error)

	// RateLimit reports the current upstream quota.
	RateLimit(ctx context.Context) (schema.RateInfo, error)
}

// CacheManager defines the interface for managing stores.
// This allows the storage layer to be mocked for testing.
type CacheManager interface {
	GetCommitStore() CacheStore
	GetStatsStore() StatsStore
}

// CacheStore defines the interface for cached commit payloads.
// Get returns ErrCacheMiss when the key is absent.
type CacheStore interface {
	Get(ctx context.Context, key string) ([]byte, int, int64, error)
	Set(ctx context.Context, key string, value []byte, version int, timestamp int64) error
	Clear(ctx context.Context) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// StatsStore defines the interface for the persisted analytics tables.
type StatsStore interface {
	// UpsertCommits inserts commits or refreshes their analysis on conflict.
	UpsertCommits(ctx context.Context, commits []schema.StoredCommit) error

	// UpsertDailyStats writes one row per (date, repo).
	UpsertDailyStats(ctx context.Context, rows []schema.DailyStatsRow) error

	// UpsertWeeklyStats writes one row per (year, week, repo).
	UpsertWeeklyStats(ctx context.Context, rows []schema.WeeklyStatsRow) error

	// WeeklySummaries returns weeks summed across repositories, newest first.
	WeeklySummaries(ctx context.Context, limit int) ([]schema.WeeklySummary, error)

	// DailyDetail returns the per-repository rows of one day plus a summary.
	DailyDetail(ctx context.Context, date time.Time) (schema.DailyDetail, error)

	// RawCommits returns stored commits, newest first.
	RawCommits(ctx context.Context, limit int) ([]schema.StoredCommit, error)

	// ListDailyStats returns every daily row ordered by date and repo.
	ListDailyStats(ctx context.Context) ([]schema.DailyStatsRow, error)

	// ListWeeklyStats returns every weekly row ordered by year, week and repo.
	ListWeeklyStats(ctx context.Context) ([]schema.WeeklyStatsRow, error)

	// Reset empties all analytics tables.
	Reset(ctx context.Context) error

	// GetStatus returns status information about the stats store.
	GetStatus() (schema.StatsStatus, error)

	// Close closes the underlying connection.
	Close() error
}
