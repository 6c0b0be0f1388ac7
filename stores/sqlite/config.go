// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/mdhender/tfcreviews/model"
)

// CacheTypeConfig names the config read cache for CleanType.
const CacheTypeConfig = "config"

// ConfigEntry is one stored configuration value.
type ConfigEntry struct {
	Scope     model.Scope `json:"scope"`
	Path      string      `json:"path"`
	Value     string      `json:"value"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// cachedValue remembers misses as well as hits.
type cachedValue struct {
	value string
	ok    bool
}

func cacheKey(path string, scope model.Scope) string {
	return fmt.Sprintf("%s/%d/%s", scopeName(scope), scope.ID, path)
}

// Get returns the value stored at exactly the given scope.
// ok is false when there is no value at that scope.
func (s *SQLiteStore) Get(ctx context.Context, path string, scope model.Scope) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.syncCache(ctx); err != nil {
		return "", false, err
	}
	key := cacheKey(path, scope)
	if cv, found := s.cache.Get(key); found {
		return cv.value, cv.ok, nil
	}

	const query = `SELECT value FROM config_data WHERE scope = ? AND scope_id = ? AND path = ?`
	var value string
	err := s.db.QueryRowContext(ctx, query, scopeName(scope), scope.ID, path).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		s.cache.Add(key, cachedValue{})
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("get config %s: %w", key, err)
	}
	s.cache.Add(key, cachedValue{value: value, ok: true})
	return value, true, nil
}

// Set upserts the value at the given scope and bumps the config version.
func (s *SQLiteStore) Set(ctx context.Context, value, path string, scope model.Scope) error {
	const query = `
		INSERT INTO config_data (scope, scope_id, path, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (scope, scope_id, path) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at
	`
	key := cacheKey(path, scope)
	err := s.write(ctx, key, query,
		scopeName(scope),
		scope.ID,
		path,
		value,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("set config %s: %w", key, err)
	}
	return nil
}

// Delete removes the value at the given scope, letting the next scope up show through.
func (s *SQLiteStore) Delete(ctx context.Context, path string, scope model.Scope) error {
	const query = `DELETE FROM config_data WHERE scope = ? AND scope_id = ? AND path = ?`
	key := cacheKey(path, scope)
	if err := s.write(ctx, key, query, scopeName(scope), scope.ID, path); err != nil {
		return fmt.Errorf("delete config %s: %w", key, err)
	}
	return nil
}

// write runs one config statement and the version bump in a transaction.
// The cache keeps its other entries only if no other handle wrote since the
// last sync.
func (s *SQLiteStore) write(ctx context.Context, key, query string, args ...any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return err
	}
	version, err := bumpVersion(ctx, tx)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}

	s.cache.Remove(key)
	if s.version != version-1 {
		s.cache.Purge()
	}
	s.version = version
	return nil
}

// syncCache purges the cache when the stored config version moved.
// Callers hold s.mu.
func (s *SQLiteStore) syncCache(ctx context.Context) error {
	var version int64
	if err := s.db.QueryRowContext(ctx, `SELECT version FROM config_version WHERE id = 1`).Scan(&version); err != nil {
		return fmt.Errorf("get config version: %w", err)
	}
	if version != s.version {
		s.cache.Purge()
		s.version = version
	}
	return nil
}

func bumpVersion(ctx context.Context, tx *sql.Tx) (int64, error) {
	if _, err := tx.ExecContext(ctx, `UPDATE config_version SET version = version + 1 WHERE id = 1`); err != nil {
		return 0, fmt.Errorf("bump config version: %w", err)
	}
	var version int64
	if err := tx.QueryRowContext(ctx, `SELECT version FROM config_version WHERE id = 1`).Scan(&version); err != nil {
		return 0, fmt.Errorf("get config version: %w", err)
	}
	return version, nil
}

// ListConfig returns every stored value ordered by path and scope.
func (s *SQLiteStore) ListConfig(ctx context.Context) ([]ConfigEntry, error) {
	const query = `
		SELECT scope, scope_id, path, value, updated_at
		FROM config_data
		ORDER BY path, CASE scope WHEN 'default' THEN 0 WHEN 'websites' THEN 1 ELSE 2 END, scope_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query config: %w", err)
	}
	defer rows.Close()

	var entries []ConfigEntry
	for rows.Next() {
		var e ConfigEntry
		var scope, updatedAt string
		if err := rows.Scan(&scope, &e.Scope.ID, &e.Path, &e.Value, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan config: %w", err)
		}
		e.Scope.Kind = model.ScopeKind(scope)
		if t, err := time.Parse(time.RFC3339, updatedAt); err == nil {
			e.UpdatedAt = t
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// CleanType purges the named cache in every process sharing the database.
// Only the config cache exists; other types are ignored.
func (s *SQLiteStore) CleanType(ctx context.Context, cacheType string) error {
	if cacheType != CacheTypeConfig {
		log.Printf("store: clean %q: no such cache type\n", cacheType)
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("clean config: %w", err)
	}
	defer tx.Rollback()
	version, err := bumpVersion(ctx, tx)
	if err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("clean config: %w", err)
	}
	s.cache.Purge()
	s.version = version
	return nil
}

func scopeName(scope model.Scope) string {
	if scope.Kind == "" {
		return string(model.ScopeDefault)
	}
	return string(scope.Kind)
}
