package provider

import (
	"context"
	"sync"
	"time"

	"github.com/cascade-ml/cascade-ui/internal/models"
)

// DefaultVersionCacheTTL is the default time-to-live for cached version info.
const DefaultVersionCacheTTL = 5 * time.Minute

// VersionFetcher loads version info from the backend.
type VersionFetcher func(ctx context.Context) (*models.VersionInfo, error)

// VersionCache caches backend version info. Version info is shown on every
// page but changes only on upgrades.
type VersionCache struct {
	mu          sync.RWMutex
	info        *models.VersionInfo
	lastFetched time.Time
	ttl         time.Duration
}

// NewVersionCache creates a cache with the given TTL.
func NewVersionCache(ttl time.Duration) *VersionCache {
	if ttl <= 0 {
		ttl = DefaultVersionCacheTTL
	}
	return &VersionCache{ttl: ttl}
}

// Get returns the cached info, fetching it when missing or expired. When a
// refresh fails the stale value is returned if there is one.
func (vc *VersionCache) Get(ctx context.Context, fetch VersionFetcher) (*models.VersionInfo, error) {
	vc.mu.RLock()
	if vc.info != nil && time.Since(vc.lastFetched) < vc.ttl {
		info := *vc.info
		vc.mu.RUnlock()
		return &info, nil
	}
	vc.mu.RUnlock()

	vc.mu.Lock()
	defer vc.mu.Unlock()

	// Double-check after acquiring write lock
	if vc.info != nil && time.Since(vc.lastFetched) < vc.ttl {
		info := *vc.info
		return &info, nil
	}

	info, err := fetch(ctx)
	if err != nil {
		if vc.info != nil {
			stale := *vc.info
			return &stale, nil
		}
		return nil, err
	}

	vc.info = info
	vc.lastFetched = time.Now()
	out := *info
	return &out, nil
}

// Invalidate clears the cached info, forcing a refresh on next access.
func (vc *VersionCache) Invalidate() {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	vc.info = nil
	vc.lastFetched = time.Time{}
}
