// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/mdhender/tfcreviews/model"
)

// UpsertWebsite inserts or updates a website.
func (s *SQLiteStore) UpsertWebsite(ctx context.Context, w model.Website) error {
	const query = `
		INSERT INTO websites (id, code, name)
		VALUES (?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			code = excluded.code,
			name = excluded.name
	`
	if _, err := s.db.ExecContext(ctx, query, w.ID, w.Code, w.Name); err != nil {
		return fmt.Errorf("upsert website %d: %w", w.ID, err)
	}
	return nil
}

// UpsertStore inserts or updates a store. The website must already exist.
func (s *SQLiteStore) UpsertStore(ctx context.Context, st model.Store) error {
	const query = `
		INSERT INTO stores (id, website_id, code, name)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			website_id = excluded.website_id,
			code = excluded.code,
			name = excluded.name
	`
	if _, err := s.db.ExecContext(ctx, query, st.ID, st.WebsiteID, st.Code, st.Name); err != nil {
		return fmt.Errorf("upsert store %d: %w", st.ID, err)
	}
	return nil
}

// ListWebsites returns all websites except the admin website, ordered by id.
func (s *SQLiteStore) ListWebsites(ctx context.Context) ([]model.Website, error) {
	const query = `SELECT id, code, name FROM websites WHERE id <> 0 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query websites: %w", err)
	}
	defer rows.Close()

	var websites []model.Website
	for rows.Next() {
		var w model.Website
		if err := rows.Scan(&w.ID, &w.Code, &w.Name); err != nil {
			return nil, err
		}
		websites = append(websites, w)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return websites, nil
}

// ListStores returns all stores except the admin store, ordered by id.
// The order is the enumeration order used when deduplicating credentials.
func (s *SQLiteStore) ListStores(ctx context.Context) ([]model.Store, error) {
	const query = `SELECT id, website_id, code, name FROM stores WHERE id <> 0 ORDER BY id`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query stores: %w", err)
	}
	defer rows.Close()

	var stores []model.Store
	for rows.Next() {
		var st model.Store
		if err := rows.Scan(&st.ID, &st.WebsiteID, &st.Code, &st.Name); err != nil {
			return nil, err
		}
		stores = append(stores, st)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return stores, nil
}

// GetStore returns the store with the given id, including the admin store.
func (s *SQLiteStore) GetStore(ctx context.Context, id int64) (model.Store, bool, error) {
	const query = `SELECT id, website_id, code, name FROM stores WHERE id = ?`
	var st model.Store
	err := s.db.QueryRowContext(ctx, query, id).Scan(&st.ID, &st.WebsiteID, &st.Code, &st.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Store{}, false, nil
	} else if err != nil {
		return model.Store{}, false, fmt.Errorf("get store %d: %w", id, err)
	}
	return st, true, nil
}
