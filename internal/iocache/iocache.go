// Package iocache owns the commit cache and the analytics store.
package iocache

import (
	"sync"

	"github.com/huangsam/devpulse/internal/contract"
)

// CacheStoreManager holds the commit cache and the stats store.
type CacheStoreManager struct {
	sync.RWMutex // Protects the store pointers during initialization
	commits      contract.CacheStore
	stats        contract.StatsStore
}

var _ contract.CacheManager = &CacheStoreManager{} // Compile-time check

// GetCommitStore returns the commit CacheStore, or nil when caching is off.
func (mgr *CacheStoreManager) GetCommitStore() contract.CacheStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.commits
}

// GetStatsStore returns the StatsStore, or nil when it was not initialized.
func (mgr *CacheStoreManager) GetStatsStore() contract.StatsStore {
	mgr.RLock()
	defer mgr.RUnlock()
	return mgr.stats
}
