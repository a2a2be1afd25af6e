package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/huangsam/devpulse/internal/contract"
	"github.com/huangsam/devpulse/schema"
	"go.uber.org/zap"
)

// currentCacheVersion defines the version of the cached payload schema.
const currentCacheVersion = 1

// CacheKey derives the cache key of one repository window.
func CacheKey(repo string, since, until time.Time) string {
	raw := fmt.Sprintf("%s:%s:%s", repo, since.Format(time.RFC3339), until.Format(time.RFC3339))
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}

// checkCacheHit returns the cached commits when the entry exists, matches the
// payload version and is younger than maxAge.
func (c *Client) checkCacheHit(ctx context.Context, key string) ([]schema.CommitRecord, bool) {
	data, version, ts, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, contract.ErrCacheMiss) {
			c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
		}
		return nil, false
	}
	if version != currentCacheVersion {
		return nil, false
	}
	if c.now().Sub(time.Unix(ts, 0)) > c.maxAge {
		return nil, false
	}

	var commits []schema.CommitRecord
	if err := json.Unmarshal(data, &commits); err != nil {
		c.logger.Warn("cache payload unreadable", zap.String("key", key), zap.Error(err))
		return nil, false
	}
	return commits, true
}

// storeInCache writes the commits of one window; failures only log.
func (c *Client) storeInCache(ctx context.Context, key string, commits []schema.CommitRecord) {
	if commits == nil {
		commits = []schema.CommitRecord{}
	}
	data, err := json.Marshal(commits)
	if err != nil {
		c.logger.Warn("cache payload encode failed", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, key, data, currentCacheVersion, c.now().Unix()); err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
}
