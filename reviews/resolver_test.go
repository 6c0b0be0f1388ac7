// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package reviews_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mdhender/tfcreviews/model"
	"github.com/mdhender/tfcreviews/reviews"
)

func newFixture() (*reviews.Reviews, *memConfig, *countingCleaner, *memDirectory) {
	cfg := newMemConfig()
	cleaner := newCountingCleaner()
	dir := &memDirectory{stores: []model.Store{
		{ID: 1, WebsiteID: 1, Code: "nl"},
		{ID: 2, WebsiteID: 1, Code: "be"},
		{ID: 3, WebsiteID: 2, Code: "de"},
	}}
	return reviews.New(cfg, cleaner, dir), cfg, cleaner, dir
}

func putCredentials(cfg *memConfig, scope model.Scope, enabled, id, secret, token string) {
	cfg.put(reviews.PathEnabled, scope, enabled)
	cfg.put(reviews.PathClientID, scope, id)
	cfg.put(reviews.PathClientSecret, scope, secret)
	cfg.put(reviews.PathClientToken, scope, token)
}

func TestOauthData_AbsentWhenUnusable(t *testing.T) {
	tests := []struct {
		name                string
		enabled, id, secret string
	}{
		{"disabled", "0", "id", "secret"},
		{"blank enabled", "", "id", "secret"},
		{"no client id", "1", "", "secret"},
		{"no client secret", "1", "id", ""},
	}
	for _, tt := range tests {
		for _, token := range []string{"", "tok"} {
			r, cfg, _, _ := newFixture()
			putCredentials(cfg, model.StoreScope(1), tt.enabled, tt.id, tt.secret, token)
			_, ok, err := r.OauthData(context.Background(), model.StoreScope(1))
			if err != nil {
				t.Fatalf("%s: unexpected error: %v", tt.name, err)
			}
			if ok {
				t.Errorf("%s (token %q): expected absent credentials", tt.name, token)
			}
		}
	}
}

func TestOauthData_MirrorsConfig(t *testing.T) {
	r, cfg, _, _ := newFixture()
	putCredentials(cfg, model.StoreScope(2), "1", "client-a", "secret-a", "")

	cs, ok, err := r.OauthData(context.Background(), model.StoreScope(2))
	if err != nil {
		t.Fatalf("oauth data: %v", err)
	}
	if !ok {
		t.Fatalf("expected usable credentials")
	}
	want := model.CredentialSet{StoreID: 2, Enabled: true, ClientID: "client-a", ClientSecret: "secret-a"}
	if cs != want {
		t.Errorf("credentials: got %+v, want %+v", cs, want)
	}
}

func TestOauthData_ScopePrecedence(t *testing.T) {
	ctx := context.Background()
	r, cfg, _, _ := newFixture()
	putCredentials(cfg, model.DefaultScope(), "1", "default-id", "default-secret", "default-token")
	cfg.put(reviews.PathClientID, model.WebsiteScope(1), "website-id")
	cfg.put(reviews.PathClientSecret, model.StoreScope(2), "store-secret")

	// store 2 overrides the secret, website 1 overrides the id
	cs, ok, err := r.OauthData(ctx, model.StoreScope(2))
	if err != nil || !ok {
		t.Fatalf("store 2: ok %v err %v", ok, err)
	}
	if cs.ClientID != "website-id" || cs.ClientSecret != "store-secret" || cs.ClientToken != "default-token" {
		t.Errorf("store 2: got %+v", cs)
	}

	// store 3 is on website 2 which overrides nothing
	cs, ok, err = r.OauthData(ctx, model.StoreScope(3))
	if err != nil || !ok {
		t.Fatalf("store 3: ok %v err %v", ok, err)
	}
	if cs.ClientID != "default-id" || cs.ClientSecret != "default-secret" {
		t.Errorf("store 3: got %+v", cs)
	}

	// website resolution ignores store values
	cs, ok, err = r.OauthData(ctx, model.WebsiteScope(1))
	if err != nil || !ok {
		t.Fatalf("website 1: ok %v err %v", ok, err)
	}
	if cs.ClientID != "website-id" || cs.ClientSecret != "default-secret" || cs.StoreID != 0 {
		t.Errorf("website 1: got %+v", cs)
	}

	// store 0 and website 0 both mean the default scope
	for _, scope := range []model.Scope{model.StoreScope(0), model.WebsiteScope(0), model.DefaultScope()} {
		cs, ok, err = r.OauthData(ctx, scope)
		if err != nil || !ok {
			t.Fatalf("%s: ok %v err %v", scope, ok, err)
		}
		if cs.ClientID != "default-id" {
			t.Errorf("%s: got %+v", scope, cs)
		}
	}
}

func TestOauthData_BackendError(t *testing.T) {
	r, cfg, _, _ := newFixture()
	cfg.getErr = errBackend
	if _, _, err := r.OauthData(context.Background(), model.StoreScope(1)); !errors.Is(err, errBackend) {
		t.Errorf("expected backend error, got %v", err)
	}
}

func TestUniqueOauthData_LastStoreWins(t *testing.T) {
	r, cfg, _, _ := newFixture()
	putCredentials(cfg, model.StoreScope(1), "1", "shared", "secret-1", "tok-1")
	putCredentials(cfg, model.StoreScope(2), "1", "shared", "secret-2", "tok-2")
	putCredentials(cfg, model.StoreScope(3), "0", "shared", "secret-3", "tok-3")

	unique, err := r.UniqueOauthData(context.Background())
	if err != nil {
		t.Fatalf("unique oauth data: %v", err)
	}
	if len(unique) != 1 {
		t.Fatalf("expected 1 entry, got %d: %+v", len(unique), unique)
	}
	got := unique["shared"]
	if got.StoreID != 2 || got.ClientSecret != "secret-2" || got.ClientToken != "tok-2" {
		t.Errorf("expected store 2 credentials, got %+v", got)
	}
}

func TestUniqueOauthData_OneEntryPerClient(t *testing.T) {
	r, cfg, _, _ := newFixture()
	putCredentials(cfg, model.StoreScope(1), "1", "a", "s", "")
	putCredentials(cfg, model.StoreScope(3), "1", "b", "s", "")

	unique, err := r.UniqueOauthData(context.Background())
	if err != nil {
		t.Fatalf("unique oauth data: %v", err)
	}
	if len(unique) != 2 || unique["a"].StoreID != 1 || unique["b"].StoreID != 3 {
		t.Errorf("unexpected map: %+v", unique)
	}
}

func TestResetAllClientTokens_FlushesOnce(t *testing.T) {
	r, cfg, cleaner, dir := newFixture()
	for _, s := range dir.stores {
		cfg.put(reviews.PathClientToken, model.StoreScope(s.ID), "tok")
	}

	if err := r.ResetAllClientTokens(context.Background()); err != nil {
		t.Fatalf("reset: %v", err)
	}
	for _, s := range dir.stores {
		if v, ok := cfg.value(reviews.PathClientToken, model.StoreScope(s.ID)); !ok || v != "" {
			t.Errorf("store %d: token %q (set %v), want cleared", s.ID, v, ok)
		}
	}
	if got := cleaner.calls[reviews.CacheTypeConfig]; got != 1 {
		t.Errorf("expected 1 cache invalidation, got %d", got)
	}
}

func TestSetClientToken_Flush(t *testing.T) {
	ctx := context.Background()
	r, cfg, cleaner, _ := newFixture()

	if err := r.SetClientToken(ctx, "tok", 2, false); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if v, _ := cfg.value(reviews.PathClientToken, model.StoreScope(2)); v != "tok" {
		t.Errorf("token: got %q, want %q", v, "tok")
	}
	if got := cleaner.calls[reviews.CacheTypeConfig]; got != 0 {
		t.Errorf("flushCache=false: expected 0 invalidations, got %d", got)
	}

	if err := r.SetClientToken(ctx, "tok2", 2, true); err != nil {
		t.Fatalf("set token: %v", err)
	}
	if got := cleaner.calls[reviews.CacheTypeConfig]; got != 1 {
		t.Errorf("flushCache=true: expected 1 invalidation, got %d", got)
	}
}

func TestSetClientToken_CleanFailureIsNotAnError(t *testing.T) {
	r, _, cleaner, _ := newFixture()
	cleaner.err = errors.New("cache unavailable")
	if err := r.SetClientToken(context.Background(), "tok", 1, true); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestSaveClientID_ResetsTokensOnChange(t *testing.T) {
	ctx := context.Background()
	r, cfg, cleaner, _ := newFixture()
	putCredentials(cfg, model.DefaultScope(), "1", "old", "secret", "")
	cfg.put(reviews.PathClientToken, model.StoreScope(1), "tok")

	if err := r.SaveClientID(ctx, "old", model.DefaultScope()); err != nil {
		t.Fatalf("save unchanged id: %v", err)
	}
	if v, _ := cfg.value(reviews.PathClientToken, model.StoreScope(1)); v != "tok" {
		t.Errorf("unchanged id: token reset to %q", v)
	}

	if err := r.SaveClientID(ctx, "new", model.DefaultScope()); err != nil {
		t.Fatalf("save new id: %v", err)
	}
	if v, _ := cfg.value(reviews.PathClientID, model.DefaultScope()); v != "new" {
		t.Errorf("client id: got %q", v)
	}
	if v, _ := cfg.value(reviews.PathClientToken, model.StoreScope(1)); v != "" {
		t.Errorf("changed id: token %q, want cleared", v)
	}
	if got := cleaner.calls[reviews.CacheTypeConfig]; got != 2 {
		t.Errorf("expected 2 invalidations, got %d", got)
	}
}
