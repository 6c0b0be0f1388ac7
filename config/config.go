// Copyright (c) 2025 Michael D Henderson. All rights reserved.

// Package config loads the application configuration and seed files.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/mdhender/tfcreviews/provider"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the config file name looked up in the working directory.
const DefaultConfigFile = "tfcreviews.yaml"

// Config represents the contents of tfcreviews.yaml.
type Config struct {
	Database string   `yaml:"database"`
	Provider Provider `yaml:"provider"`
	Server   Server   `yaml:"server"`
}

// Provider configures the review API client.
type Provider struct {
	BaseURL  string        `yaml:"base_url"`
	TokenURL string        `yaml:"token_url"`
	Timeout  time.Duration `yaml:"timeout"`
}

// Server configures the admin API.
type Server struct {
	Addr              string `yaml:"addr"`
	AdminUser         string `yaml:"admin_user"`
	AdminPasswordHash string `yaml:"admin_password_hash"` // bcrypt
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		Database: "tfcreviews.db",
		Provider: Provider{
			BaseURL:  provider.DefaultBaseURL,
			TokenURL: provider.DefaultTokenURL,
			Timeout:  provider.DefaultTimeout,
		},
		Server: Server{
			Addr:      ":8787",
			AdminUser: "admin",
		},
	}
}

// Load reads the config from path. A missing file returns the defaults.
// Values absent from the file keep their defaults.
func Load(fs afero.Fs, path string) (*Config, error) {
	cfg := Default()

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to path.
func Save(fs afero.Fs, path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := afero.WriteFile(fs, path, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
