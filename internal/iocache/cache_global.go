package iocache

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"

	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
)

// commitsCacheTable is the name of the table for cached commit payloads.
const commitsCacheTable = "commits_cache"

// Global Manager instance for main logic.
var (
	Manager   = &CacheStoreManager{}
	initOnce  sync.Once
	closeOnce sync.Once
)

// GetDBFilePath returns the path to the SQLite DB file for cache storage.
func GetDBFilePath() string {
	return contract.GetDBFilePath()
}

// GetStatsDBFilePath returns the path to the SQLite DB file for stats storage.
func GetStatsDBFilePath() string {
	return contract.GetStatsDBFilePath()
}

// NewCommitStore builds the cache store for a backend.
func NewCommitStore(ctx context.Context, backend schema.DatabaseBackend, connStr string, redisOpts RedisOptions) (contract.CacheStore, error) {
	if backend == schema.RedisBackend {
		return NewRedisCacheStore(ctx, redisOpts)
	}
	return NewCacheStore(commitsCacheTable, backend, connStr)
}

// InitStores initializes the global manager with the cache and stats stores.
// An empty backend leaves the corresponding store nil.
func InitStores(ctx context.Context, cacheBackend schema.DatabaseBackend, cacheConnStr string, redisOpts RedisOptions,
	statsBackend schema.DatabaseBackend, statsConnStr string,
) error {
	var initErr error

	initOnce.Do(func() {
		var commitStore contract.CacheStore
		if cacheBackend != "" {
			store, err := NewCommitStore(ctx, cacheBackend, cacheConnStr, redisOpts)
			if err != nil {
				initErr = fmt.Errorf("failed to initialize commit cache: %w", err)
				return
			}
			commitStore = store
		}

		var statsStore contract.StatsStore
		if statsBackend != "" {
			store, err := NewStatsStore(statsBackend, statsConnStr)
			if err != nil {
				if commitStore != nil {
					_ = commitStore.Close()
				}
				initErr = fmt.Errorf("failed to initialize stats store: %w", err)
				return
			}
			statsStore = store
		}

		Manager.Lock()
		defer Manager.Unlock()
		Manager.commits = commitStore
		Manager.stats = statsStore
	})

	return initErr
}

// CloseStores should be called on application shutdown.
func CloseStores() {
	closeOnce.Do(func() {
		Manager.Lock()
		defer Manager.Unlock()
		if Manager.commits != nil {
			_ = Manager.commits.Close()
		}
		if Manager.stats != nil {
			_ = Manager.stats.Close()
		}
	})
}

// ClearCache clears the commit cache for the specified backend.
// For SQLite, it deletes the database file.
// For MySQL and PostgreSQL, it drops the cache table.
// For Redis, it deletes every cache key.
// For NoneBackend, it does nothing.
func ClearCache(ctx context.Context, backend schema.DatabaseBackend, dbFilePath, connStr string, redisOpts RedisOptions) error {
	switch backend {
	case schema.SQLiteBackend:
		if dbFilePath == "" {
			return fmt.Errorf("dbFilePath cannot be empty for SQLite backend")
		}
		if err := os.Remove(dbFilePath); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove SQLite database file %s: %w", dbFilePath, err)
		}
		return nil

	case schema.MySQLBackend, schema.PostgreSQLBackend:
		return dropSQLTable(ctx, backend, connStr, commitsCacheTable)

	case schema.RedisBackend:
		store, err := NewRedisCacheStore(ctx, redisOpts)
		if err != nil {
			return err
		}
		defer func() { _ = store.Close() }()
		return store.Clear(ctx)

	case schema.NoneBackend:
		return nil

	default:
		return fmt.Errorf("unsupported cache backend for clearing: %s", backend)
	}
}

// dropSQLTable connects to the SQL database and drops the table if it exists.
func dropSQLTable(ctx context.Context, backend schema.DatabaseBackend, connStr, tableName string) error {
	driver, err := driverName(backend)
	if err != nil {
		return err
	}
	db, err := sql.Open(driver, connStr)
	if err != nil {
		return fmt.Errorf("failed to connect to %s database: %w", backend, err)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("failed to ping %s database: %w", backend, err)
	}

	query := fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteTableName(tableName, backend))
	if _, err := db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", tableName, err)
	}
	return nil
}
