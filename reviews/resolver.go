// Copyright (c) 2025 Michael D Henderson. All rights reserved.

package reviews

import (
	"context"
	"fmt"
	"strings"

	"github.com/mdhender/tfcreviews/model"
)

// OauthData returns the credentials configured for the scope.
//
// A website scope with a non-zero id is resolved at website level. Anything
// else is treated as a store scope; store 0 is the default scope.
// ok is false when the scope has no usable credential set.
func (r *Reviews) OauthData(ctx context.Context, scope model.Scope) (model.CredentialSet, bool, error) {
	scope = credentialScope(scope)

	var values [4]string
	for i, path := range []string{PathEnabled, PathClientID, PathClientSecret, PathClientToken} {
		value, _, err := r.resolve(ctx, path, scope)
		if err != nil {
			return model.CredentialSet{}, false, err
		}
		values[i] = value
	}

	cs := model.CredentialSet{
		Enabled:      isEnabled(values[0]),
		ClientID:     values[1],
		ClientSecret: values[2],
		ClientToken:  values[3],
	}
	if !cs.Usable() {
		return model.CredentialSet{}, false, nil
	}
	if scope.Kind == model.ScopeStores {
		cs.StoreID = scope.ID
	}
	return cs, true, nil
}

// UniqueOauthData returns one credential set per client id across all stores.
// When stores share a client id, the last store in enumeration order wins.
func (r *Reviews) UniqueOauthData(ctx context.Context) (model.UniqueCredentialMap, error) {
	stores, err := r.stores.ListStores(ctx)
	if err != nil {
		return nil, fmt.Errorf("list stores: %w", err)
	}
	unique := make(model.UniqueCredentialMap)
	for _, store := range stores {
		cs, ok, err := r.OauthData(ctx, model.StoreScope(store.ID))
		if err != nil {
			return nil, fmt.Errorf("store %d: %w", store.ID, err)
		} else if !ok {
			continue
		}
		unique[cs.ClientID] = cs
	}
	return unique, nil
}

// ResetAllClientTokens clears the client token of every store and purges the
// config cache once at the end.
func (r *Reviews) ResetAllClientTokens(ctx context.Context) error {
	stores, err := r.stores.ListStores(ctx)
	if err != nil {
		return fmt.Errorf("list stores: %w", err)
	}
	for _, store := range stores {
		if err := r.SetClientToken(ctx, "", store.ID, false); err != nil {
			r.cleanConfig(ctx)
			return err
		}
	}
	r.cleanConfig(ctx)
	return nil
}

// SetClientToken saves the token for the store. When flushCache is set the
// config cache is purged right after the write.
func (r *Reviews) SetClientToken(ctx context.Context, token string, storeID int64, flushCache bool) error {
	if err := r.config.Set(ctx, token, PathClientToken, storeScope(storeID)); err != nil {
		return fmt.Errorf("set client token for store %d: %w", storeID, err)
	}
	if flushCache {
		r.cleanConfig(ctx)
	}
	return nil
}

// SaveClientID writes the client id at the scope. When the effective id
// changes every store's token is reset.
func (r *Reviews) SaveClientID(ctx context.Context, clientID string, scope model.Scope) error {
	scope = scope.Exact()
	previous, _, err := r.resolve(ctx, PathClientID, scope)
	if err != nil {
		return err
	}
	if err := r.config.Set(ctx, clientID, PathClientID, scope); err != nil {
		return fmt.Errorf("set client id: %w", err)
	}
	if previous == clientID {
		r.cleanConfig(ctx)
		return nil
	}
	return r.ResetAllClientTokens(ctx)
}

// resolve returns the first value found walking from scope towards the
// default scope: store, then its website, then default.
func (r *Reviews) resolve(ctx context.Context, path string, scope model.Scope) (string, bool, error) {
	chain, err := r.scopeChain(ctx, scope)
	if err != nil {
		return "", false, err
	}
	for _, s := range chain {
		value, ok, err := r.config.Get(ctx, path, s)
		if err != nil {
			return "", false, fmt.Errorf("get %s at %s: %w", path, s, err)
		} else if ok {
			return value, true, nil
		}
	}
	return "", false, nil
}

func (r *Reviews) scopeChain(ctx context.Context, scope model.Scope) ([]model.Scope, error) {
	scope = scope.Exact()
	switch scope.Kind {
	case model.ScopeWebsites:
		return []model.Scope{scope, model.DefaultScope()}, nil
	case model.ScopeStores:
		store, ok, err := r.stores.GetStore(ctx, scope.ID)
		if err != nil {
			return nil, fmt.Errorf("get store %d: %w", scope.ID, err)
		} else if !ok {
			return []model.Scope{scope, model.DefaultScope()}, nil
		}
		return []model.Scope{scope, model.WebsiteScope(store.WebsiteID), model.DefaultScope()}, nil
	}
	return []model.Scope{model.DefaultScope()}, nil
}

// credentialScope picks website resolution only for a non-zero website id.
func credentialScope(scope model.Scope) model.Scope {
	if scope.Kind == model.ScopeWebsites && scope.ID != 0 {
		return scope
	}
	if scope.Kind == model.ScopeWebsites {
		return model.DefaultScope()
	}
	return storeScope(scope.ID)
}

func storeScope(storeID int64) model.Scope {
	return model.StoreScope(storeID).Exact()
}

func isEnabled(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
