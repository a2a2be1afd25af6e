package schema

import "time"

// CacheStatus represents the status of the cache store.
type CacheStatus struct {
	Backend         string    `json:"backend"`
	Connected       bool      `json:"connected"`
	TotalEntries    int       `json:"total_entries"`
	LastEntryTime   time.Time `json:"last_entry_time"`
	OldestEntryTime time.Time `json:"oldest_entry_time"`
	TableSizeBytes  int64     `json:"table_size_bytes"`
}

// StatsStatus represents the status of the stats store.
type StatsStatus struct {
	Backend       string           `json:"backend"`
	Connected     bool             `json:"connected"`
	TotalCommits  int              `json:"total_commits"`
	TotalDays     int              `json:"total_days"`
	TotalWeeks    int              `json:"total_weeks"`
	LastCommitAt  time.Time        `json:"last_commit_at"`
	FirstCommitAt time.Time        `json:"first_commit_at"`
	TableSizes    map[string]int64 `json:"table_sizes"`
}

// ConnectionReport summarizes upstream reachability for the check command.
type ConnectionReport struct {
	Provider     string            `json:"provider"`
	RateLimit    *RateInfo         `json:"rate_limit,omitempty"`
	Repositories map[string]string `json:"repositories"`
}

// RateInfo mirrors the upstream quota at a point in time.
type RateInfo struct {
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	Reset     time.Time `json:"reset"`
}
