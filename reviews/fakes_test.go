// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package reviews_test

import (
	"context"
	"errors"

	"github.com/mdhender/tfcreviews/model"
)

type configKey struct {
	path  string
	scope model.Scope
}

// memConfig is an exact-scope key/value store.
type memConfig struct {
	values map[configKey]string
	sets   int
	getErr error
}

func newMemConfig() *memConfig {
	return &memConfig{values: make(map[configKey]string)}
}

func (m *memConfig) Get(_ context.Context, path string, scope model.Scope) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[configKey{path, scope}]
	return v, ok, nil
}

func (m *memConfig) Set(_ context.Context, value, path string, scope model.Scope) error {
	m.sets++
	m.values[configKey{path, scope}] = value
	return nil
}

func (m *memConfig) put(path string, scope model.Scope, value string) {
	m.values[configKey{path, scope}] = value
}

func (m *memConfig) value(path string, scope model.Scope) (string, bool) {
	v, ok := m.values[configKey{path, scope}]
	return v, ok
}

type countingCleaner struct {
	calls map[string]int
	err   error
}

func newCountingCleaner() *countingCleaner {
	return &countingCleaner{calls: make(map[string]int)}
}

func (c *countingCleaner) CleanType(_ context.Context, cacheType string) error {
	c.calls[cacheType]++
	return c.err
}

type memDirectory struct {
	stores []model.Store
	err    error
}

func (d *memDirectory) ListStores(context.Context) ([]model.Store, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.stores, nil
}

func (d *memDirectory) GetStore(_ context.Context, id int64) (model.Store, bool, error) {
	if d.err != nil {
		return model.Store{}, false, d.err
	}
	for _, s := range d.stores {
		if s.ID == id {
			return s, true, nil
		}
	}
	return model.Store{}, false, nil
}

var errBackend = errors.New("backend down")
