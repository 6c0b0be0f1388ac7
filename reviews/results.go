// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package reviews

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mdhender/tfcreviews/model"
)

// SaveReviewResult normalizes a batch of fetch results keyed by client id,
// replaces the cached batch with it, and records the import time.
// An empty typ is recorded as "cron".
//
// Successes and failures land in the same batch; one failed client never
// keeps the others from being written.
func (r *Reviews) SaveReviewResult(ctx context.Context, results map[string]model.FetchResult, typ string) (map[string]model.ResultCacheRecord, error) {
	if typ == "" {
		typ = DefaultType
	}

	batch := make(map[string]model.ResultCacheRecord, len(results))
	for clientID, result := range results {
		batch[clientID] = model.NewResultCacheRecord(result, typ)
	}

	data, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("encode review result: %w", err)
	}
	if err := r.config.Set(ctx, string(data), PathResult, model.DefaultScope()); err != nil {
		return nil, fmt.Errorf("set review result: %w", err)
	}
	if err := r.config.Set(ctx, LastImportMessage(r.now(), typ), PathLastImport, model.DefaultScope()); err != nil {
		return nil, fmt.Errorf("set last import: %w", err)
	}

	return batch, nil
}

// AllSummaryData returns the cached batch. It returns nil when nothing has
// been cached yet or the cached value cannot be decoded.
func (r *Reviews) AllSummaryData(ctx context.Context) (map[string]model.ResultCacheRecord, error) {
	value, ok, err := r.resolve(ctx, PathResult, model.DefaultScope())
	if err != nil {
		return nil, err
	} else if !ok || value == "" {
		return nil, nil
	}
	var batch map[string]model.ResultCacheRecord
	if err := json.Unmarshal([]byte(value), &batch); err != nil {
		return nil, nil
	}
	return batch, nil
}

// SummaryData returns the cached summary for the client id configured at
// the scope. Failure records are never returned; ok is false instead.
func (r *Reviews) SummaryData(ctx context.Context, scope model.Scope) (model.ResultCacheRecord, bool, error) {
	batch, err := r.AllSummaryData(ctx)
	if err != nil {
		return model.ResultCacheRecord{}, false, err
	}

	clientID, _, err := r.resolve(ctx, PathClientID, credentialScope(scope))
	if err != nil {
		return model.ResultCacheRecord{}, false, err
	} else if clientID == "" {
		return model.ResultCacheRecord{}, false, nil
	}

	record, ok := batch[clientID]
	if !ok || record.Status != model.StatusSuccess {
		return model.ResultCacheRecord{}, false, nil
	}
	return record, true, nil
}

// LastImported returns the last import message, if any.
func (r *Reviews) LastImported(ctx context.Context) (string, bool, error) {
	return r.resolve(ctx, PathLastImport, model.DefaultScope())
}

// LastImportMessage formats the last import entry, for example
// "2025-03-01 04:00:00 (cron).".
func LastImportMessage(t time.Time, typ string) string {
	return fmt.Sprintf("%s (%s).", t.UTC().Format(time.DateTime), typ)
}
