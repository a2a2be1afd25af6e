package iocache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces cache entries inside a shared Redis database.
const redisKeyPrefix = "devpulse:commits:"

// RedisOptions locate the Redis server used as commit cache.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
}

// RedisCacheStore keeps each cache entry in a Redis hash.
type RedisCacheStore struct {
	client *redis.Client
	addr   string
}

var _ contract.CacheStore = &RedisCacheStore{} // Compile-time check

// NewRedisCacheStore connects to Redis and verifies the connection.
func NewRedisCacheStore(ctx context.Context, opts RedisOptions) (*RedisCacheStore, error) {
	if opts.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", opts.Addr, err)
	}
	return &RedisCacheStore{client: client, addr: opts.Addr}, nil
}

// Get retrieves a value by key from the store.
func (rs *RedisCacheStore) Get(ctx context.Context, key string) ([]byte, int, int64, error) {
	fields, err := rs.client.HGetAll(ctx, redisKeyPrefix+key).Result()
	if err != nil {
		return nil, 0, 0, err
	}
	if len(fields) == 0 {
		return nil, 0, 0, contract.ErrCacheMiss
	}
	version, err := strconv.Atoi(fields["version"])
	if err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt cache version for %s: %w", key, err)
	}
	ts, err := strconv.ParseInt(fields["ts"], 10, 64)
	if err != nil {
		return nil, 0, 0, fmt.Errorf("corrupt cache timestamp for %s: %w", key, err)
	}
	return []byte(fields["value"]), version, ts, nil
}

// Set replaces the entry atomically.
func (rs *RedisCacheStore) Set(ctx context.Context, key string, value []byte, version int, timestamp int64) error {
	k := redisKeyPrefix + key
	_, err := rs.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k, "value", value, "version", version, "ts", timestamp)
		return nil
	})
	return err
}

// Clear deletes every devpulse cache key.
func (rs *RedisCacheStore) Clear(ctx context.Context) error {
	iter := rs.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		if err := rs.client.Del(ctx, iter.Val()).Err(); err != nil {
			return fmt.Errorf("failed to delete cache key %s: %w", iter.Val(), err)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}
	return nil
}

// GetStatus scans the cache keys to report their count and age range.
func (rs *RedisCacheStore) GetStatus() (schema.CacheStatus, error) {
	ctx := context.Background()
	status := schema.CacheStatus{Backend: string(schema.RedisBackend), Connected: true}

	var oldest, newest int64
	iter := rs.client.Scan(ctx, 0, redisKeyPrefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		status.TotalEntries++
		ts, err := rs.client.HGet(ctx, iter.Val(), "ts").Int64()
		if err != nil {
			continue
		}
		if oldest == 0 || ts < oldest {
			oldest = ts
		}
		newest = max(newest, ts)
		if n, err := rs.client.MemoryUsage(ctx, iter.Val()).Result(); err == nil {
			status.TableSizeBytes += n
		}
	}
	if err := iter.Err(); err != nil {
		return status, fmt.Errorf("failed to scan cache keys: %w", err)
	}
	if status.TotalEntries > 0 {
		status.LastEntryTime = time.Unix(newest, 0)
		status.OldestEntryTime = time.Unix(oldest, 0)
	}
	return status, nil
}

// Close closes the Redis client.
func (rs *RedisCacheStore) Close() error {
	return rs.client.Close()
}
