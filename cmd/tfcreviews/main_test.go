// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/mdhender/tfcreviews/config"
	"github.com/mdhender/tfcreviews/model"
	"github.com/mdhender/tfcreviews/reviews"
	store "github.com/mdhender/tfcreviews/stores/sqlite"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// newTestDB creates a database file with website 1 holding store 1.
func newTestDB(t *testing.T) (string, *store.SQLiteStore) {
	t.Helper()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "reviews.db")
	if err := store.InitDatabase(path); err != nil {
		t.Fatalf("init: %v", err)
	}
	s, err := store.NewSQLiteStoreWithConfig(store.StoreConfig{Path: path})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.UpsertWebsite(ctx, model.Website{ID: 1, Code: "base"}); err != nil {
		t.Fatalf("upsert website: %v", err)
	}
	if err := s.UpsertStore(ctx, model.Store{ID: 1, WebsiteID: 1, Code: "nl"}); err != nil {
		t.Fatalf("upsert store: %v", err)
	}
	return path, s
}

// execute runs the CLI against dbPath with no config file.
func execute(t *testing.T, dbPath string, args ...string) error {
	t.Helper()
	root := newRootCmd()
	root.SetArgs(append([]string{
		"--db", dbPath,
		"--config", filepath.Join(t.TempDir(), "missing.yaml"),
	}, args...))
	return root.Execute()
}

func TestScopeFromFlags(t *testing.T) {
	for _, tc := range []struct {
		args []string
		want model.Scope
	}{
		{nil, model.DefaultScope()},
		{[]string{"--store", "0"}, model.DefaultScope()},
		{[]string{"--website", "0"}, model.DefaultScope()},
		{[]string{"--store", "3"}, model.StoreScope(3)},
		{[]string{"--website", "2"}, model.WebsiteScope(2)},
	} {
		var storeID, websiteID int64
		cmd := &cobra.Command{Use: "test"}
		addScopeFlags(cmd, &storeID, &websiteID)
		if err := cmd.ParseFlags(tc.args); err != nil {
			t.Fatalf("%v: parse: %v", tc.args, err)
		}
		if got := scopeFromFlags(cmd, storeID, websiteID); got != tc.want {
			t.Errorf("%v: got %v, want %v", tc.args, got, tc.want)
		}
	}
}

func TestConfigSet_StoreZeroIsDefault(t *testing.T) {
	ctx := context.Background()
	path, s := newTestDB(t)

	if err := execute(t, path, "config", "set", "reviews.enabled", "1", "--store", "0"); err != nil {
		t.Fatalf("config set: %v", err)
	}
	if got, ok, err := s.Get(ctx, "reviews.enabled", model.DefaultScope()); err != nil || !ok || got != "1" {
		t.Errorf("default scope: got %q ok %v err %v", got, ok, err)
	}
	if _, ok, _ := s.Get(ctx, "reviews.enabled", model.StoreScope(0)); ok {
		t.Errorf("stores/0: expected no value")
	}
}

func TestConfigSet_UnknownScope(t *testing.T) {
	path, _ := newTestDB(t)

	if err := execute(t, path, "config", "set", "reviews.enabled", "1", "--store", "9"); err == nil {
		t.Errorf("store 9: expected error")
	}
	if err := execute(t, path, "config", "set", "reviews.enabled", "1", "--website", "9"); err == nil {
		t.Errorf("website 9: expected error")
	}
	if err := execute(t, path, "config", "set", "reviews.enabled", "1", "--website", "1"); err != nil {
		t.Errorf("website 1: %v", err)
	}
}

func TestConfigDelete_NextScopeShowsThrough(t *testing.T) {
	ctx := context.Background()
	path, s := newTestDB(t)
	for _, v := range []struct {
		path  string
		scope model.Scope
		value string
	}{
		{reviews.PathEnabled, model.DefaultScope(), "1"},
		{reviews.PathClientSecret, model.DefaultScope(), "secret"},
		{reviews.PathClientID, model.DefaultScope(), "default-id"},
		{reviews.PathClientID, model.StoreScope(1), "store-id"},
	} {
		if err := s.Set(ctx, v.value, v.path, v.scope); err != nil {
			t.Fatalf("set: %v", err)
		}
	}
	r := reviews.New(s, s, s)
	if cs, ok, _ := r.OauthData(ctx, model.StoreScope(1)); !ok || cs.ClientID != "store-id" {
		t.Fatalf("before delete: got %+v ok %v", cs, ok)
	}

	if err := execute(t, path, "config", "delete", reviews.PathClientID, "--store", "1"); err != nil {
		t.Fatalf("config delete: %v", err)
	}
	if cs, ok, _ := r.OauthData(ctx, model.StoreScope(1)); !ok || cs.ClientID != "default-id" {
		t.Errorf("after delete: got %+v ok %v", cs, ok)
	}
}

func TestStoresCommand(t *testing.T) {
	path, _ := newTestDB(t)
	if err := execute(t, path, "stores"); err != nil {
		t.Errorf("stores: %v", err)
	}
}

func TestWriteDefaultConfig(t *testing.T) {
	fs := afero.NewMemMapFs()
	const path = "tfcreviews.yaml"

	if err := writeDefaultConfig(fs, path, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := config.Load(fs, path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if *cfg != *config.Default() {
		t.Errorf("load: got %+v, want defaults", cfg)
	}

	if err := writeDefaultConfig(fs, path, false); err == nil {
		t.Errorf("second write: expected error")
	}
	if err := writeDefaultConfig(fs, path, true); err != nil {
		t.Errorf("forced write: %v", err)
	}
}
