package iocache

import (
	"context"
	"time"

	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
	"github.com/stretchr/testify/mock"
)

// MockCacheManager is a mock implementation of CacheManager for testing.
type MockCacheManager struct {
	mock.Mock
}

var _ contract.CacheManager = &MockCacheManager{} // Compile-time check

// GetCommitStore implements the CacheManager interface.
func (m *MockCacheManager) GetCommitStore() contract.CacheStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.CacheStore)
	return store
}

// GetStatsStore implements the CacheManager interface.
func (m *MockCacheManager) GetStatsStore() contract.StatsStore {
	ret := m.Called()
	store, _ := ret.Get(0).(contract.StatsStore)
	return store
}

// MockCacheStore is a mock implementation of CacheStore for testing.
type MockCacheStore struct {
	mock.Mock
}

var _ contract.CacheStore = &MockCacheStore{} // Compile-time check

// Get implements the CacheStore interface.
func (m *MockCacheStore) Get(ctx context.Context, key string) ([]byte, int, int64, error) {
	args := m.Called(ctx, key)
	data, _ := args.Get(0).([]byte)
	return data, args.Int(1), args.Get(2).(int64), args.Error(3)
}

// Set implements the CacheStore interface.
func (m *MockCacheStore) Set(ctx context.Context, key string, data []byte, version int, ts int64) error {
	args := m.Called(ctx, key, data, version, ts)
	return args.Error(0)
}

// Clear implements the CacheStore interface.
func (m *MockCacheStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// GetStatus implements the CacheStore interface.
func (m *MockCacheStore) GetStatus() (schema.CacheStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.CacheStatus), args.Error(1)
}

// Close implements the CacheStore interface.
func (m *MockCacheStore) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockStatsStore is a mock implementation of StatsStore for testing.
type MockStatsStore struct {
	mock.Mock
}

var _ contract.StatsStore = &MockStatsStore{} // Compile-time check

// UpsertCommits implements the StatsStore interface.
func (m *MockStatsStore) UpsertCommits(ctx context.Context, commits []schema.StoredCommit) error {
	args := m.Called(ctx, commits)
	return args.Error(0)
}

// UpsertDailyStats implements the StatsStore interface.
func (m *MockStatsStore) UpsertDailyStats(ctx context.Context, rows []schema.DailyStatsRow) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

// UpsertWeeklyStats implements the StatsStore interface.
func (m *MockStatsStore) UpsertWeeklyStats(ctx context.Context, rows []schema.WeeklyStatsRow) error {
	args := m.Called(ctx, rows)
	return args.Error(0)
}

// WeeklySummaries implements the StatsStore interface.
func (m *MockStatsStore) WeeklySummaries(ctx context.Context, limit int) ([]schema.WeeklySummary, error) {
	args := m.Called(ctx, limit)
	out, _ := args.Get(0).([]schema.WeeklySummary)
	return out, args.Error(1)
}

// DailyDetail implements the StatsStore interface.
func (m *MockStatsStore) DailyDetail(ctx context.Context, date time.Time) (schema.DailyDetail, error) {
	args := m.Called(ctx, date)
	return args.Get(0).(schema.DailyDetail), args.Error(1)
}

// RawCommits implements the StatsStore interface.
func (m *MockStatsStore) RawCommits(ctx context.Context, limit int) ([]schema.StoredCommit, error) {
	args := m.Called(ctx, limit)
	out, _ := args.Get(0).([]schema.StoredCommit)
	return out, args.Error(1)
}

// ListDailyStats implements the StatsStore interface.
func (m *MockStatsStore) ListDailyStats(ctx context.Context) ([]schema.DailyStatsRow, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]schema.DailyStatsRow)
	return out, args.Error(1)
}

// ListWeeklyStats implements the StatsStore interface.
func (m *MockStatsStore) ListWeeklyStats(ctx context.Context) ([]schema.WeeklyStatsRow, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]schema.WeeklyStatsRow)
	return out, args.Error(1)
}

// Reset implements the StatsStore interface.
func (m *MockStatsStore) Reset(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// GetStatus implements the StatsStore interface.
func (m *MockStatsStore) GetStatus() (schema.StatsStatus, error) {
	args := m.Called()
	return args.Get(0).(schema.StatsStatus), args.Error(1)
}

// Close implements the StatsStore interface.
func (m *MockStatsStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
