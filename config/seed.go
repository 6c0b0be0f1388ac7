// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package config

import (
	"fmt"

	"github.com/mdhender/tfcreviews/model"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Seed describes websites, stores, and config values to load into a database.
//
//	websites:
//	  - {id: 1, code: base, name: Main Website}
//	stores:
//	  - {id: 1, website_id: 1, code: nl, name: Dutch}
//	config:
//	  - {path: reviews.enabled, value: "1"}
//	  - {path: api.clientId, scope: stores, scope_id: 1, value: abc}
type Seed struct {
	Websites []model.Website `yaml:"websites"`
	Stores   []model.Store   `yaml:"stores"`
	Config   []SeedValue     `yaml:"config"`
}

// SeedValue is one configuration value. An empty scope means default.
type SeedValue struct {
	Path    string `yaml:"path"`
	Scope   string `yaml:"scope"`
	ScopeID int64  `yaml:"scope_id"`
	Value   string `yaml:"value"`
}

// ScopeOf returns the value's scope.
func (v SeedValue) ScopeOf() (model.Scope, error) {
	switch model.ScopeKind(v.Scope) {
	case "", model.ScopeDefault:
		return model.DefaultScope(), nil
	case model.ScopeWebsites:
		return model.WebsiteScope(v.ScopeID), nil
	case model.ScopeStores:
		return model.StoreScope(v.ScopeID), nil
	}
	return model.Scope{}, fmt.Errorf("%s: unknown scope %q", v.Path, v.Scope)
}

// LoadSeed reads and validates a seed file.
func LoadSeed(fs afero.Fs, path string) (*Seed, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("reading seed %s: %w", path, err)
	}
	var seed Seed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parsing seed %s: %w", path, err)
	}
	for _, v := range seed.Config {
		if v.Path == "" {
			return nil, fmt.Errorf("seed %s: config value without path", path)
		}
		if _, err := v.ScopeOf(); err != nil {
			return nil, fmt.Errorf("seed %s: %w", path, err)
		}
	}
	return &seed, nil
}
