// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package reviews resolves per-scope Feedback Company credentials and
// maintains the cached batch of review summaries in the configuration store.
//
// Nothing in this package caches configuration reads. Every accessor goes
// back to the ConfigStore, and every write replaces a single entry.
package reviews

import (
	"context"
	"log"
	"time"

	"github.com/mdhender/tfcreviews/model"
)

// Configuration paths.
const (
	PathEnabled      = "reviews.enabled"
	PathClientID     = "api.clientId"
	PathClientSecret = "api.clientSecret"
	PathClientToken  = "api.clientToken"
	PathResult       = "reviews.result"
	PathLastImport   = "reviews.lastImport"
)

// CacheTypeConfig is the cache type purged after credential changes.
const CacheTypeConfig = "config"

// DefaultType labels imports that were not triggered by a caller.
const DefaultType = "cron"

// ConfigStore reads and writes values at an exact scope.
// Get reports ok=false when no value is stored at that scope.
type ConfigStore interface {
	Get(ctx context.Context, path string, scope model.Scope) (string, bool, error)
	Set(ctx context.Context, value, path string, scope model.Scope) error
}

// CacheCleaner purges cached configuration reads.
type CacheCleaner interface {
	CleanType(ctx context.Context, cacheType string) error
}

// StoreDirectory enumerates stores and maps a store to its website.
type StoreDirectory interface {
	ListStores(ctx context.Context) ([]model.Store, error)
	GetStore(ctx context.Context, id int64) (model.Store, bool, error)
}

// Reviews holds the collaborators. It keeps no state between calls.
type Reviews struct {
	config ConfigStore
	cache  CacheCleaner
	stores StoreDirectory
	now    func() time.Time
}

// New creates a new Reviews helper.
func New(config ConfigStore, cache CacheCleaner, stores StoreDirectory) *Reviews {
	return &Reviews{
		config: config,
		cache:  cache,
		stores: stores,
		now:    time.Now,
	}
}

// SetClock sets the clock for testing.
func (r *Reviews) SetClock(now func() time.Time) {
	r.now = now
}

// cleanConfig purges the config cache. Failures are logged and otherwise ignored.
func (r *Reviews) cleanConfig(ctx context.Context) {
	if r.cache == nil {
		return
	}
	if err := r.cache.CleanType(ctx, CacheTypeConfig); err != nil {
		log.Printf("reviews: clean %s cache: %v\n", CacheTypeConfig, err)
	}
}
